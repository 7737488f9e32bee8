// Package questionsource provides the Room's sole collaborator for fetching
// trivia content: a category tree and individual questions, honoring
// category/difficulty/exclusion and falling back to an embedded deck when
// the upstream provider is unavailable.
package questionsource

import (
	"context"
	"errors"
	"strings"
)

// ErrUniqueQuestionUnavailable is returned by FetchQuestion when the provider
// (or, on fallback, the embedded deck) has no question left matching params
// that isn't already in ExcludeIDs — distinct from a provider/transport
// failure, which the Room maps to QuestionProviderUnavailable instead.
var ErrUniqueQuestionUnavailable = errors.New("unique question unavailable")

// Question is a single trivia question as returned by a Source.
type Question struct {
	ID                string
	Category          string
	Difficulty        string
	Question          string
	CorrectAnswer     string
	IncorrectAnswers  []string
}

// FetchQuestionParams narrows a question request.
type FetchQuestionParams struct {
	Category   string // already-resolved provider category, may be empty
	Difficulty string // easy|medium|hard, may be empty
	ExcludeIDs map[string]struct{}
}

// Source is everything the Room needs from a trivia content provider.
type Source interface {
	// FetchCategories returns a slugified group -> sub-slugs map. Slugs are
	// lowercase, "&" becomes "and", every other non-alphanumeric run becomes
	// a single "_", and the result is trimmed of leading/trailing "_".
	FetchCategories(ctx context.Context) (map[string][]string, error)

	// FetchQuestion returns a single question matching params. Implementations
	// try the upstream provider up to 3 times, discarding any result whose id
	// is in params.ExcludeIDs, then fall back to the embedded deck.
	FetchQuestion(ctx context.Context, params FetchQuestionParams) (Question, error)

	// Healthy reports whether the upstream provider's circuit breaker is not
	// tripped. Used by the readiness probe; always true for deck-only sources.
	Healthy(ctx context.Context) bool
}

// Slugify normalizes a category name into the slug form used as a map key
// and as half of a usedCategorySlots entry.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// PointsForDifficulty implements the activate operation's point table.
func PointsForDifficulty(difficulty string) int {
	switch difficulty {
	case "easy":
		return 150
	case "medium":
		return 250
	case "hard":
		return 400
	default:
		return 200
	}
}
