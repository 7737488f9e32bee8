// Package metrics declares the Prometheus instruments for the room core.
//
// Naming convention mirrors the teacher's: namespace_subsystem_name.
//   - namespace: trivia_buzzer (application-level grouping)
//   - subsystem: room, websocket, question_source, rate_limit (feature-level grouping)
//   - name: specific metric
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoomsActive tracks the current number of live rooms.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the player count of each room.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_code"})

	// ConnectionsActive tracks the current number of live WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// CommandsTotal tracks every CommandDispatcher invocation.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "dispatcher",
		Name:      "commands_total",
		Help:      "Total room commands dispatched",
	}, []string{"operation", "status"})

	// CommandDuration tracks dispatcher operation latency.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "dispatcher",
		Name:      "command_duration_seconds",
		Help:      "Time spent executing a room command",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation"})

	// BuzzesTotal tracks buzz attempts by outcome (won, rejected).
	BuzzesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "room",
		Name:      "buzzes_total",
		Help:      "Total buzz attempts by outcome",
	}, []string{"room_code", "outcome"})

	// QuestionProviderCircuitState mirrors the circuit breaker state for the
	// upstream trivia provider: 0 closed, 1 open, 2 half-open.
	QuestionProviderCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "question_source",
		Name:      "circuit_state",
		Help:      "Circuit breaker state for the upstream question provider (0=closed,1=open,2=half-open)",
	})

	// QuestionProviderFailuresTotal tracks failed upstream fetch attempts.
	QuestionProviderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "question_source",
		Name:      "failures_total",
		Help:      "Total failed attempts to fetch a question from the upstream provider",
	}, []string{"reason"})

	// RateLimitExceeded tracks requests rejected by the best-effort limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia_buzzer",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total requests that exceeded the best-effort rate limit",
	}, []string{"endpoint"})
)
