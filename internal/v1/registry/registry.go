// Package registry implements the RoomRegistry and ShareCodeIndex (components
// A and B): the one piece of truly global, cross-room state in the service.
// Every other package operates on a single *room.Room; this package is what
// resolves an incoming HTTP or WebSocket request to the right one.
package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
	"github.com/alex-gusto/buzzer/internal/v1/room"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const shareCodeTTL = 5 * time.Minute

// RoomSummary is the projection returned by the room-listing HTTP endpoint.
type RoomSummary struct {
	Code            string `json:"code"`
	CreatedAt       int64  `json:"createdAt"`
	PlayerCount     int    `json:"playerCount"`
	QuestionActive  bool   `json:"questionActive"`
	HostOnline      bool   `json:"hostOnline"`
	ShareActive     bool   `json:"shareActive"`
	ShareExpiresAt  *int64 `json:"shareExpiresAt,omitempty"`
}

// Registry is the process-global room directory. Its own mutex guards the
// rooms map, the pending-cleanup timers, and the share-code index. Lock order
// is registry-then-room (§5): the only call into a Room made while holding mu
// is the cleanup timer's final IsEmpty check; every other method releases mu
// before touching a Room.
type Registry struct {
	mu sync.Mutex

	rooms           map[string]*room.Room
	pendingCleanups map[string]*time.Timer
	shareIndex      map[string]string // share digits -> room code

	cleanupGrace time.Duration
	questions    questionsource.Source
}

// New constructs an empty Registry. cleanupGrace mirrors the teacher's
// cleanupGracePeriod; questions is used both per-room (passed through to
// room.New) and for the best-effort category preload on creation.
func New(cleanupGrace time.Duration, questions questionsource.Source) *Registry {
	return &Registry{
		rooms:           make(map[string]*room.Room),
		pendingCleanups: make(map[string]*time.Timer),
		shareIndex:      make(map[string]string),
		cleanupGrace:    cleanupGrace,
		questions:       questions,
	}
}

// CreateRoom draws a fresh 4-char code and host secret, best-effort preloads
// the category tree (a provider failure here never blocks room creation —
// the room simply falls back to ungrouped single-category activation), and
// registers the room.
func (reg *Registry) CreateRoom(ctx context.Context) (*room.Room, error) {
	categories, err := reg.questions.FetchCategories(ctx)
	if err != nil {
		logging.Warn(ctx, "category preload failed, continuing without grouping")
		categories = nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	code, err := reg.drawUniqueCodeLocked()
	if err != nil {
		return nil, err
	}
	hostSecret := room.NewHostSecret()
	r := room.New(code, hostSecret, categories, reg.questions)
	reg.rooms[code] = r

	metrics.RoomsActive.Inc()
	logging.Info(logging.WithRoom(ctx, code), "room created")
	return r, nil
}

// GetRoom resolves a room code to its Room, or apperror.RoomNotFound. Codes
// are stored canonical uppercase (§4.A); lookup is case-insensitive.
func (reg *Registry) GetRoom(code string) (*room.Room, error) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	if !ok {
		return nil, apperror.New(apperror.RoomNotFound)
	}
	return r, nil
}

// CancelPendingCleanup stops and clears any scheduled deletion timer for
// code, called whenever a join/reconnect/connection brings the room back to
// life, mirroring the teacher's getOrCreateRoom reconnection path.
func (reg *Registry) CancelPendingCleanup(code string) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if timer, ok := reg.pendingCleanups[code]; ok {
		timer.Stop()
		delete(reg.pendingCleanups, code)
	}
}

// ScheduleCleanupIfEmpty starts a grace-period deletion timer for code if the
// room is currently empty (zero players, zero connections). Safe to call
// after every operation that might empty a room; a non-empty room is a
// no-op, and a room that fills back up before the timer fires has its
// cleanup cancelled by CancelPendingCleanup.
func (reg *Registry) ScheduleCleanupIfEmpty(code string) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	if existing, exists := reg.pendingCleanups[code]; exists {
		existing.Stop()
		delete(reg.pendingCleanups, code)
	}
	reg.mu.Unlock()

	if !r.IsEmpty() {
		return
	}

	timer := time.AfterFunc(reg.cleanupGrace, func() {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		current, ok := reg.rooms[code]
		if !ok {
			delete(reg.pendingCleanups, code)
			return
		}
		if current.IsEmpty() {
			delete(reg.rooms, code)
			delete(reg.pendingCleanups, code)
			reg.purgeShareEntriesForRoomLocked(code)
			metrics.RoomsActive.Dec()
			metrics.RoomPlayers.DeleteLabelValues(code)
			logging.Info(context.Background(), "removed empty room after grace period")
			return
		}
		delete(reg.pendingCleanups, code)
	})

	reg.mu.Lock()
	reg.pendingCleanups[code] = timer
	reg.mu.Unlock()
}

// DestroyRoom removes code immediately (op: destroyRoom, host-initiated —
// unlike ScheduleCleanupIfEmpty this does not wait for emptiness or a grace
// period). The caller is responsible for calling room.DestroyRoom() to
// notify connections first.
func (reg *Registry) DestroyRoom(code string) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if timer, ok := reg.pendingCleanups[code]; ok {
		timer.Stop()
		delete(reg.pendingCleanups, code)
	}
	if _, ok := reg.rooms[code]; !ok {
		return
	}
	delete(reg.rooms, code)
	reg.purgeShareEntriesForRoomLocked(code)
	metrics.RoomsActive.Dec()
	metrics.RoomPlayers.DeleteLabelValues(code)
}

// ListRooms returns a snapshot projection of every live room, sorted by
// createdAt descending (§6.1 GET /api/rooms).
func (reg *Registry) ListRooms() []RoomSummary {
	reg.mu.Lock()
	rooms := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot(room.RolePlayer)
		_, _, expiresAt, shareOK := r.ShareCodeState()
		summary := RoomSummary{
			Code:           r.Code(),
			CreatedAt:      r.CreatedAt(),
			PlayerCount:    len(snap.Players),
			QuestionActive: snap.QuestionActive,
			HostOnline:     r.HasHostConnection(),
			ShareActive:    shareOK,
		}
		if shareOK {
			expires := expiresAt
			summary.ShareExpiresAt = &expires
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})
	return summaries
}

// IssueShareCode draws a fresh 4-digit code unique across every room and
// installs it on the given room (op: issueShareCode, §4.B).
func (reg *Registry) IssueShareCode(code string) (shareCode string, expiresAt int64, err error) {
	code = strings.ToUpper(code)
	r, err := reg.GetRoom(code)
	if err != nil {
		return "", 0, err
	}

	reg.mu.Lock()
	reg.purgeShareEntriesForRoomLocked(code)
	digits, err := reg.drawUniqueShareCodeLocked()
	if err != nil {
		reg.mu.Unlock()
		return "", 0, err
	}
	reg.shareIndex[digits] = code
	reg.mu.Unlock()

	now := time.Now().UnixMilli()
	expires := now + shareCodeTTL.Milliseconds()
	r.SetShareCode(digits, now, expires)
	return digits, expires, nil
}

// ClaimShareCode resolves a 4-digit share code to its owning room, expiring
// stale entries as a side effect (op: claimShareCode, §4.B).
func (reg *Registry) ClaimShareCode(digits string) (roomCode, hostSecret string, expiresAt int64, err error) {
	if len(digits) != 4 || !isAllDigits(digits) {
		return "", "", 0, apperror.New(apperror.InvalidShareCode)
	}

	reg.mu.Lock()
	code, ok := reg.shareIndex[digits]
	reg.mu.Unlock()
	if !ok {
		return "", "", 0, apperror.New(apperror.ShareCodeNotFound)
	}

	r, err := reg.GetRoom(code)
	if err != nil {
		reg.mu.Lock()
		delete(reg.shareIndex, digits)
		reg.mu.Unlock()
		return "", "", 0, apperror.New(apperror.ShareCodeNotFound)
	}

	current, _, roomExpiresAt, ok := r.ShareCodeState()
	if !ok || current != digits {
		reg.mu.Lock()
		delete(reg.shareIndex, digits)
		reg.mu.Unlock()
		return "", "", 0, apperror.New(apperror.ShareCodeNotFound)
	}

	return code, r.HostSecret(), roomExpiresAt, nil
}

// purgeShareEntriesForRoomLocked removes every share-index entry pointing at
// code. Must be called with reg.mu held.
func (reg *Registry) purgeShareEntriesForRoomLocked(code string) {
	for digits, owner := range reg.shareIndex {
		if owner == code {
			delete(reg.shareIndex, digits)
		}
	}
}

// drawUniqueCodeLocked draws a random 4-char code from codeAlphabet that is
// not already in use. Must be called with reg.mu held.
func (reg *Registry) drawUniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < 50; attempt++ {
		candidate, err := randomCode(4, codeAlphabet)
		if err != nil {
			return "", err
		}
		if _, exists := reg.rooms[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("registry: exhausted attempts drawing a unique room code")
}

// drawUniqueShareCodeLocked draws a random 4-digit code not already present
// in the share index. Must be called with reg.mu held.
func (reg *Registry) drawUniqueShareCodeLocked() (string, error) {
	for attempt := 0; attempt < 50; attempt++ {
		candidate, err := randomCode(4, "0123456789")
		if err != nil {
			return "", err
		}
		if _, exists := reg.shareIndex[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("registry: exhausted attempts drawing a unique share code")
}

func randomCode(length int, alphabet string) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
