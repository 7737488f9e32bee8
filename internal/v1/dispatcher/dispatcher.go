// Package dispatcher implements the CommandDispatcher (component F): the
// sole path by which external commands — HTTP handlers and WebSocket
// messages alike — reach a Room. It resolves the room, authenticates host
// operations, runs the Room transition, and records metrics; the Room itself
// already serializes its own transitions and schedules its own broadcasts,
// so the dispatcher adds auth, resolution, and observability around it
// rather than re-implementing serialization.
package dispatcher

import (
	"context"
	"time"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/registry"
	"github.com/alex-gusto/buzzer/internal/v1/room"
)

// Dispatcher wraps a Registry with host authentication and instrumentation.
type Dispatcher struct {
	registry *registry.Registry
}

// New constructs a Dispatcher over the given Registry.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Registry exposes the underlying Registry for the transport layer, whose
// connection registration/disconnect handling touches rooms directly rather
// than through a metrics-instrumented command (registration itself is not
// part of the closed operation taxonomy — it is connection bookkeeping, not
// a state transition).
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// instrument records CommandsTotal/CommandDuration for operation, regardless
// of outcome.
func (d *Dispatcher) instrument(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(operation, status).Inc()
	metrics.CommandDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return err
}

func authHost(r *room.Room, hostSecret string) error {
	if !r.CheckHostSecret(hostSecret) {
		return apperror.New(apperror.Forbidden)
	}
	return nil
}

// CreateRoom provisions a new room (op: RoomRegistry.create).
func (d *Dispatcher) CreateRoom(ctx context.Context) (code, hostSecret string, err error) {
	err = d.instrument("createRoom", func() error {
		r, createErr := d.registry.CreateRoom(ctx)
		if createErr != nil {
			return createErr
		}
		code, hostSecret = r.Code(), r.HostSecret()
		return nil
	})
	return code, hostSecret, err
}

// ListRooms projects every live room (GET /api/rooms).
func (d *Dispatcher) ListRooms() []registry.RoomSummary {
	return d.registry.ListRooms()
}

// GetSnapshot returns the role-independent ("player-role", per Open Question
// 1) snapshot of a room (GET /api/session/:code).
func (d *Dispatcher) GetSnapshot(code string) (*room.Snapshot, error) {
	r, err := d.registry.GetRoom(code)
	if err != nil {
		return nil, err
	}
	return r.Snapshot(room.RolePlayer), nil
}

// Join adds a new player to the room (op: join).
func (d *Dispatcher) Join(code, name string) (playerID string, err error) {
	err = d.instrument("join", func() error {
		r, getErr := d.registry.GetRoom(code)
		if getErr != nil {
			return getErr
		}
		playerID, err = r.Join(name)
		if err != nil {
			return err
		}
		d.registry.CancelPendingCleanup(code)
		metrics.RoomPlayers.WithLabelValues(code).Inc()
		return nil
	})
	return playerID, err
}

// Reconnect authenticates a returning player without mutating state (op:
// reconnect).
func (d *Dispatcher) Reconnect(code, playerID string) error {
	return d.instrument("reconnect", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := r.Reconnect(playerID); err != nil {
			return err
		}
		d.registry.CancelPendingCleanup(code)
		return nil
	})
}

// RemovePlayer deletes a player from the room (op: removePlayer — no host
// secret required, per §6.1's unauthenticated /leave endpoint).
func (d *Dispatcher) RemovePlayer(code, playerID string) error {
	return d.instrument("removePlayer", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := r.RemovePlayer(playerID); err != nil {
			return err
		}
		metrics.RoomPlayers.WithLabelValues(code).Dec()
		d.registry.ScheduleCleanupIfEmpty(code)
		return nil
	})
}

// SetTurn assigns the current turn (op: setTurn, host-only).
func (d *Dispatcher) SetTurn(code, hostSecret, playerID string) error {
	return d.instrument("setTurn", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		return r.SetTurn(playerID)
	})
}

// Activate fetches and installs a new active question (op: activate,
// host-only). ctx carries the caller-supplied timeout for the upstream
// QuestionSource call (§5 "cancellation/timeouts").
func (d *Dispatcher) Activate(ctx context.Context, code, hostSecret string, params room.ActivateParams) error {
	return d.instrument("activate", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		if err := r.Activate(ctx, params); err != nil {
			if apperror.Is(err, apperror.QuestionProviderUnavailable) {
				metrics.QuestionProviderFailuresTotal.WithLabelValues("activate").Inc()
			}
			return err
		}
		return nil
	})
}

// OpenBuzzers opens the floor for buzzing (op: openBuzzers, host-only).
func (d *Dispatcher) OpenBuzzers(code, hostSecret string) error {
	return d.instrument("openBuzzers", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		return r.OpenBuzzers()
	})
}

// Buzz registers a player's claim to answer (op: buzz, player self).
func (d *Dispatcher) Buzz(code, playerID string) error {
	return d.instrument("buzz", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		buzzErr := r.Buzz(playerID)
		outcome := "won"
		if buzzErr != nil {
			outcome = "rejected"
		}
		metrics.BuzzesTotal.WithLabelValues(code, outcome).Inc()
		return buzzErr
	})
}

// MarkCorrect awards points and finishes the question (op: markCorrect,
// host-only).
func (d *Dispatcher) MarkCorrect(code, hostSecret, playerID string) error {
	return d.instrument("markCorrect", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		return r.MarkCorrect(playerID)
	})
}

// MarkIncorrect resolves the question as missed, optionally reopening
// buzzers (op: markIncorrect, host-only).
func (d *Dispatcher) MarkIncorrect(code, hostSecret string, openBuzzers bool) error {
	return d.instrument("markIncorrect", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		return r.MarkIncorrect(openBuzzers)
	})
}

// Cancel discards the active question without scoring (op: cancel,
// host-only).
func (d *Dispatcher) Cancel(code, hostSecret string) error {
	return d.instrument("cancel", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		return r.Cancel()
	})
}

// DestroyRoom closes every connection and removes the room (op: destroyRoom,
// host-only).
func (d *Dispatcher) DestroyRoom(code, hostSecret string) error {
	return d.instrument("destroyRoom", func() error {
		r, err := d.registry.GetRoom(code)
		if err != nil {
			return err
		}
		if err := authHost(r, hostSecret); err != nil {
			return err
		}
		r.DestroyRoom()
		d.registry.DestroyRoom(code)
		metrics.RoomPlayers.DeleteLabelValues(code)
		return nil
	})
}

// IssueShareCode draws a fresh share code for the room (op: issueShareCode,
// host-only).
func (d *Dispatcher) IssueShareCode(code, hostSecret string) (shareCode string, expiresAt int64, err error) {
	err = d.instrument("issueShareCode", func() error {
		r, getErr := d.registry.GetRoom(code)
		if getErr != nil {
			return getErr
		}
		if authErr := authHost(r, hostSecret); authErr != nil {
			return authErr
		}
		shareCode, expiresAt, err = d.registry.IssueShareCode(code)
		return err
	})
	return shareCode, expiresAt, err
}

// ClaimShareCode resolves a share code to its owning room (op:
// claimShareCode).
func (d *Dispatcher) ClaimShareCode(shareCode string) (roomCode, hostSecret string, expiresAt int64, err error) {
	err = d.instrument("claimShareCode", func() error {
		roomCode, hostSecret, expiresAt, err = d.registry.ClaimShareCode(shareCode)
		return err
	})
	return roomCode, hostSecret, expiresAt, err
}
