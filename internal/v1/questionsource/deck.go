package questionsource

import (
	"math/rand"
	"sync"
)

// Deck is the embedded fallback question set, used when the upstream
// provider is unconfigured, exhausted, or circuit-broken.
type Deck struct {
	mu        sync.Mutex
	rng       *rand.Rand
	questions []Question
}

// NewDeck builds a Deck preloaded with a small embedded question set
// spanning the category/difficulty combinations exercised by typical rooms.
func NewDeck() *Deck {
	return &Deck{
		rng:       rand.New(rand.NewSource(1)),
		questions: embeddedQuestions(),
	}
}

// Categories returns the deck's own group -> sub-slug map, already slugified.
func (d *Deck) Categories() map[string][]string {
	groups := make(map[string]map[string]struct{})
	for _, q := range d.questions {
		group := Slugify(q.Category)
		if groups[group] == nil {
			groups[group] = make(map[string]struct{})
		}
		groups[group][group] = struct{}{}
	}
	out := make(map[string][]string, len(groups))
	for group, subs := range groups {
		for sub := range subs {
			out[group] = append(out[group], sub)
		}
	}
	return out
}

// Pick returns a random question matching params, excluding any id already
// seen, or false if the deck has nothing left to offer.
func (d *Deck) Pick(params FetchQuestionParams) (Question, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var candidates []Question
	for _, q := range d.questions {
		if _, excluded := params.ExcludeIDs[q.ID]; excluded {
			continue
		}
		if params.Category != "" && Slugify(q.Category) != Slugify(params.Category) {
			continue
		}
		if params.Difficulty != "" && q.Difficulty != params.Difficulty {
			continue
		}
		candidates = append(candidates, q)
	}
	if len(candidates) == 0 {
		return Question{}, false
	}
	return candidates[d.rng.Intn(len(candidates))], true
}

func embeddedQuestions() []Question {
	return []Question{
		{ID: "deck-science-easy-1", Category: "science", Difficulty: "easy",
			Question: "What planet is known as the Red Planet?",
			CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Saturn"}},
		{ID: "deck-science-medium-1", Category: "science", Difficulty: "medium",
			Question: "What is the atomic number of carbon?",
			CorrectAnswer: "6", IncorrectAnswers: []string{"8", "12", "14"}},
		{ID: "deck-science-hard-1", Category: "science", Difficulty: "hard",
			Question: "What particle mediates the electromagnetic force?",
			CorrectAnswer: "Photon", IncorrectAnswers: []string{"Gluon", "Boson", "Neutrino"}},
		{ID: "deck-history-easy-1", Category: "history", Difficulty: "easy",
			Question: "In what year did World War II end?",
			CorrectAnswer: "1945", IncorrectAnswers: []string{"1944", "1946", "1939"}},
		{ID: "deck-history-medium-1", Category: "history", Difficulty: "medium",
			Question: "Who was the first President of the United States?",
			CorrectAnswer: "George Washington", IncorrectAnswers: []string{"John Adams", "Thomas Jefferson", "Benjamin Franklin"}},
		{ID: "deck-history-hard-1", Category: "history", Difficulty: "hard",
			Question: "Which treaty ended the Thirty Years' War?",
			CorrectAnswer: "Peace of Westphalia", IncorrectAnswers: []string{"Treaty of Utrecht", "Treaty of Versailles", "Congress of Vienna"}},
		{ID: "deck-music-easy-1", Category: "music", Difficulty: "easy",
			Question: "How many strings does a standard guitar have?",
			CorrectAnswer: "6", IncorrectAnswers: []string{"4", "5", "8"}},
		{ID: "deck-music-medium-1", Category: "music", Difficulty: "medium",
			Question: "Who composed 'The Four Seasons'?",
			CorrectAnswer: "Antonio Vivaldi", IncorrectAnswers: []string{"Johann Sebastian Bach", "Wolfgang Amadeus Mozart", "Ludwig van Beethoven"}},
		{ID: "deck-music-hard-1", Category: "music", Difficulty: "hard",
			Question: "What key signature has three sharps?",
			CorrectAnswer: "A major", IncorrectAnswers: []string{"D major", "E major", "G major"}},
		{ID: "deck-geography-easy-1", Category: "geography", Difficulty: "easy",
			Question: "What is the capital of France?",
			CorrectAnswer: "Paris", IncorrectAnswers: []string{"Lyon", "Marseille", "Nice"}},
		{ID: "deck-geography-medium-1", Category: "geography", Difficulty: "medium",
			Question: "Which river is the longest in the world?",
			CorrectAnswer: "Nile", IncorrectAnswers: []string{"Amazon", "Yangtze", "Mississippi"}},
		{ID: "deck-geography-hard-1", Category: "geography", Difficulty: "hard",
			Question: "Which country has the most time zones?",
			CorrectAnswer: "France", IncorrectAnswers: []string{"Russia", "United States", "China"}},
	}
}
