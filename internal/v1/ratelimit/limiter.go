// Package ratelimit applies best-effort IP-based rate limiting with
// github.com/ulule/limiter/v3, backed by an in-memory store. There is no
// cross-process coordination: each server instance limits independently,
// which is sufficient for the single-process deployment this service targets.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/config"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
)

// Limiter holds the per-endpoint-class limiter instances.
type Limiter struct {
	public *limiter.Limiter
	rooms  *limiter.Limiter
	wsIP   *limiter.Limiter
}

// New builds a Limiter from the configured rate strings (e.g. "100-M").
func New(cfg *config.Config) (*Limiter, error) {
	store := memory.NewStore()

	publicRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIPublic)
	if err != nil {
		return nil, fmt.Errorf("invalid public rate: %w", err)
	}
	roomsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIRooms)
	if err != nil {
		return nil, fmt.Errorf("invalid rooms rate: %w", err)
	}
	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWSIP)
	if err != nil {
		return nil, fmt.Errorf("invalid ws ip rate: %w", err)
	}

	return &Limiter{
		public: limiter.New(store, publicRate),
		rooms:  limiter.New(store, roomsRate),
		wsIP:   limiter.New(store, wsIPRate),
	}, nil
}

// Public enforces the public (non-room-creating) API rate, keyed by client IP.
func (l *Limiter) Public() gin.HandlerFunc {
	return l.middleware(l.public, "api_public")
}

// Rooms enforces the room-creation/mutation API rate, keyed by client IP.
func (l *Limiter) Rooms() gin.HandlerFunc {
	return l.middleware(l.rooms, "api_rooms")
}

func (l *Limiter) middleware(inst *limiter.Limiter, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// prefixed with label: public/rooms/wsIP share one store, and an
		// unprefixed client IP would let one class's count bleed into another's.
		key := label + ":" + c.ClientIP()

		state, err := inst.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err), zap.String("endpoint", label))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			metrics.RateLimitExceeded.WithLabelValues(label).Inc()
			c.Header("Retry-After", strconv.FormatInt(state.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": state.Reset,
			})
			return
		}

		c.Next()
	}
}

// CheckWebSocket applies the per-IP WebSocket connection rate, returning
// false (and leaving a response already written) when the limit is exceeded.
func (l *Limiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := "websocket_connect:" + c.ClientIP()

	state, err := l.wsIP.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed", zap.Error(err))
		return true
	}

	if state.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect").Inc()
		c.Header("Retry-After", strconv.FormatInt(state.Reset-time.Now().Unix(), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connections from this address"})
		return false
	}
	return true
}
