package questionsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
)

// maxFetchAttempts bounds the retry loop spec.md §4.D calls for: "up to 3
// tries; each try that returns an id already in excludeIds is discarded."
const maxFetchAttempts = 3

// HTTPSource fetches questions from an upstream trivia API over HTTP,
// wrapping every call in a circuit breaker and falling back to the embedded
// deck on repeated failure, the way the teacher's bus.Service wraps Redis
// calls in a gobreaker and degrades gracefully on ErrOpenState.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	deck    *Deck
}

// NewHTTPSource builds an HTTPSource. If baseURL is empty the source still
// works, serving every request from the embedded deck and reporting Healthy
// unconditionally — this is fallback-deck-only mode.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	st := gobreaker.Settings{
		Name:        "question_provider",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			var v float64
			switch to {
			case gobreaker.StateClosed:
				v = 0
			case gobreaker.StateOpen:
				v = 1
			case gobreaker.StateHalfOpen:
				v = 2
			}
			metrics.QuestionProviderCircuitState.Set(v)
			logging.Info(context.Background(), "question provider circuit state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
		deck:    NewDeck(),
	}
}

// FetchCategories returns the provider's category tree, slugified, falling
// back to the embedded deck's categories when the provider is unreachable.
func (s *HTTPSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	if s.baseURL == "" {
		return s.deck.Categories(), nil
	}

	result, err := s.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/categories", nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("question provider returned status %d", resp.StatusCode)
		}
		var raw map[string][]string
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		metrics.QuestionProviderFailuresTotal.WithLabelValues("categories").Inc()
		logging.Warn(ctx, "falling back to embedded category list", zap.Error(err))
		return s.deck.Categories(), nil
	}

	raw := result.(map[string][]string)
	slugified := make(map[string][]string, len(raw))
	for group, subs := range raw {
		slugSubs := make([]string, len(subs))
		for i, sub := range subs {
			slugSubs[i] = Slugify(sub)
		}
		slugified[Slugify(group)] = slugSubs
	}
	return slugified, nil
}

// FetchQuestion attempts the upstream provider up to maxFetchAttempts times,
// discarding any result whose id collides with params.ExcludeIDs, then falls
// back to the embedded deck on exhaustion or circuit trip.
func (s *HTTPSource) FetchQuestion(ctx context.Context, params FetchQuestionParams) (Question, error) {
	if s.baseURL != "" {
		for attempt := 0; attempt < maxFetchAttempts; attempt++ {
			q, err := s.fetchOnce(ctx, params)
			if err != nil {
				metrics.QuestionProviderFailuresTotal.WithLabelValues("fetch").Inc()
				logging.Warn(ctx, "question provider fetch attempt failed",
					zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			if _, excluded := params.ExcludeIDs[q.ID]; excluded {
				continue
			}
			return q, nil
		}
		logging.Warn(ctx, "question provider exhausted, falling back to embedded deck")
	}

	q, ok := s.deck.Pick(params)
	if !ok {
		return Question{}, ErrUniqueQuestionUnavailable
	}
	return q, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, params FetchQuestionParams) (Question, error) {
	result, err := s.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/question", nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		if params.Category != "" {
			q.Set("category", params.Category)
		}
		if params.Difficulty != "" {
			q.Set("difficulty", params.Difficulty)
		}
		req.URL.RawQuery = q.Encode()

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("question provider returned status %d", resp.StatusCode)
		}
		var question Question
		if err := json.NewDecoder(resp.Body).Decode(&question); err != nil {
			return nil, err
		}
		return question, nil
	})
	if err != nil {
		return Question{}, err
	}
	return result.(Question), nil
}

// Healthy reports whether the circuit breaker is not tripped open. Sources
// running in fallback-deck-only mode (empty baseURL) are always healthy.
func (s *HTTPSource) Healthy(ctx context.Context) bool {
	if s.baseURL == "" {
		return true
	}
	return s.cb.State() != gobreaker.StateOpen
}
