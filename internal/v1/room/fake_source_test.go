package room

import (
	"context"

	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
)

// fakeSource is a scripted questionsource.Source for deterministic tests:
// each category/difficulty pair is pre-seeded with one fixed question, so
// activate() in tests never depends on randomness.
type fakeSource struct {
	byKey map[string]questionsource.Question
	// exhausted makes a miss report ErrUniqueQuestionUnavailable instead of
	// the generic errNoQuestion, simulating a deck/provider with nothing left
	// rather than a transport failure.
	exhausted bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{byKey: make(map[string]questionsource.Question)}
}

func (f *fakeSource) seed(category, difficulty string, q questionsource.Question) *fakeSource {
	q.Category = category
	q.Difficulty = difficulty
	f.byKey[category+"|"+difficulty] = q
	return f
}

func (f *fakeSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	return nil, nil
}

func (f *fakeSource) FetchQuestion(ctx context.Context, params questionsource.FetchQuestionParams) (questionsource.Question, error) {
	q, ok := f.byKey[params.Category+"|"+params.Difficulty]
	if !ok {
		if f.exhausted {
			return questionsource.Question{}, questionsource.ErrUniqueQuestionUnavailable
		}
		return questionsource.Question{}, errNoQuestion
	}
	if _, excluded := params.ExcludeIDs[q.ID]; excluded {
		if f.exhausted {
			return questionsource.Question{}, questionsource.ErrUniqueQuestionUnavailable
		}
		return questionsource.Question{}, errNoQuestion
	}
	return q, nil
}

func (f *fakeSource) Healthy(ctx context.Context) bool { return true }

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errNoQuestion = sentinelError("no question for that slot")
