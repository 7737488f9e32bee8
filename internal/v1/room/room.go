package room

import (
	"container/list"
	"context"
	"crypto/subtle"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"k8s.io/utils/set"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
)

// noTurn marks currentTurnIndex as absent (no players, or turn order empty).
const noTurn = -1

// Room is the authoritative per-room state machine (component E). Every
// mutating method acquires mu for its full duration except Activate, which
// releases the lock across the QuestionSource call per the "short critical
// section" option in the concurrency model, and RemovePlayer/DestroyRoom,
// which close sinks after releasing it.
type Room struct {
	mu sync.Mutex

	code       string
	hostSecret string
	createdAt  int64

	players           map[string]*Player
	turnOrder         []string
	currentTurnIndex  int
	currentTurnID     string
	activeQuestion    *ActiveQuestion
	lastResult        *QuestionResult
	usedQuestions     set.Set[string]
	usedCategorySlots set.Set[string]
	categories        map[string][]string

	shareCode          string
	shareCodeIssuedAt  int64
	shareCodeExpiresAt int64

	connections *ConnectionSet
	buzzOrder   *list.List

	questions questionsource.Source
	now       func() time.Time
}

// New constructs a fresh Room. hostSecret and code are generated by the
// registry (component A), which owns uniqueness and entropy requirements.
func New(code, hostSecret string, categories map[string][]string, questions questionsource.Source) *Room {
	return &Room{
		code:              code,
		hostSecret:        hostSecret,
		createdAt:         time.Now().UnixMilli(),
		players:           make(map[string]*Player),
		currentTurnIndex:  noTurn,
		usedQuestions:     set.New[string](),
		usedCategorySlots: set.New[string](),
		categories:        categories,
		connections:       NewConnectionSet(),
		buzzOrder:         list.New(),
		questions:         questions,
		now:               time.Now,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) CreatedAt() int64 { return r.createdAt }

// HostSecret returns the room's opaque host secret for constant-time
// comparison by the CommandDispatcher. It never changes after creation.
func (r *Room) HostSecret() string { return r.hostSecret }

// CheckHostSecret performs the constant-time comparison every host-only
// operation requires.
func (r *Room) CheckHostSecret(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(r.hostSecret)) == 1
}

func (r *Room) nowMs() int64 { return r.now().UnixMilli() }

// IsEmpty reports whether the room has zero players and zero connections,
// the trigger condition for registry cleanup.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0 && r.connections.Len() == 0
}

// HasHostConnection reports whether a host is currently connected, used by
// the registry's room-listing projection.
func (r *Room) HasHostConnection() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections.HasRole(RoleHost)
}

// Connections exposes the connection set for the dispatcher/transport layer
// to register and broadcast through. Callers must hold no external lock;
// registration mutates room state and so is itself part of the room's
// single-writer discipline (see AddConnection/RemoveConnection).
func (r *Room) Connections() *ConnectionSet { return r.connections }

// AddConnection registers a connection under the room lock and immediately
// returns a fresh snapshot for that connection's role, mirroring the "state
// on registration" contract of §6.2.
func (r *Room) AddConnection(conn *Connection) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections.Add(conn)
	return r.buildSnapshotLocked(conn.Role, conn.PlayerID)
}

// RemoveConnection drops a single connection (e.g. on socket close) without
// touching player state — disconnect alone never removes a player.
func (r *Room) RemoveConnection(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections.Remove(conn)
}

// Join appends a new player (op: join).
func (r *Room) Join(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > 32 {
		return "", apperror.Newf(apperror.ValidationError, "name must be 1-32 characters, got %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := newPlayerID()
	r.players[id] = &Player{
		ID:       id,
		Name:     trimmed,
		JoinedAt: r.nowMs(),
	}
	r.turnOrder = append(r.turnOrder, id)
	if r.currentTurnIndex == noTurn {
		r.currentTurnIndex = 0
		r.currentTurnID = id
	}

	r.broadcastLocked()
	return id, nil
}

// Reconnect is a pure lookup used to authenticate a WebSocket as a returning
// player (op: reconnect). It never mutates state.
func (r *Room) Reconnect(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[playerID]; !ok {
		return apperror.New(apperror.PlayerNotFound)
	}
	return nil
}

// SetTurn assigns the current turn to playerID (op: setTurn, host-only).
func (r *Room) SetTurn(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := indexOf(r.turnOrder, playerID)
	if idx < 0 {
		return apperror.New(apperror.PlayerNotFound)
	}
	r.currentTurnIndex = idx
	r.currentTurnID = playerID
	r.broadcastLocked()
	return nil
}

// ActivateParams narrows the activate operation's inputs.
type ActivateParams struct {
	Category   string
	Difficulty string
}

// Activate fetches and installs a new active question (op: activate,
// host-only). It releases the room lock across the QuestionSource call and
// re-validates preconditions on re-entry, per §5's short-critical-section
// option.
func (r *Room) Activate(ctx context.Context, params ActivateParams) error {
	r.mu.Lock()
	if r.activeQuestion != nil {
		r.mu.Unlock()
		return apperror.New(apperror.QuestionAlreadyInPlay)
	}
	if r.currentTurnID == "" {
		r.mu.Unlock()
		return apperror.New(apperror.TurnRequired)
	}

	providerCategory := params.Category
	if params.Category != "" {
		if subs, ok := r.categories[params.Category]; ok && len(subs) > 0 {
			providerCategory = subs[rand.Intn(len(subs))]
		}
	}
	excludeIDs := make(map[string]struct{}, r.usedQuestions.Len())
	for id := range r.usedQuestions {
		excludeIDs[id] = struct{}{}
	}
	r.mu.Unlock()

	q, err := r.questions.FetchQuestion(ctx, questionsource.FetchQuestionParams{
		Category:   providerCategory,
		Difficulty: params.Difficulty,
		ExcludeIDs: excludeIDs,
	})
	if err != nil {
		if errors.Is(err, questionsource.ErrUniqueQuestionUnavailable) {
			return apperror.New(apperror.UniqueQuestionUnavailable)
		}
		return apperror.Newf(apperror.QuestionProviderUnavailable, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-validate: another transition may have committed while we were
	// waiting on the provider.
	if r.activeQuestion != nil {
		return apperror.New(apperror.QuestionAlreadyInPlay)
	}
	if r.currentTurnID == "" {
		return apperror.New(apperror.TurnRequired)
	}

	slotCategory := params.Category
	if slotCategory == "" {
		slotCategory = q.Category
	}
	slotKey := slotCategory + "|" + q.Difficulty
	if r.usedCategorySlots.Has(slotKey) {
		return apperror.New(apperror.SlotAlreadyUsed)
	}
	r.usedCategorySlots.Insert(slotKey)

	choices := shuffledChoices(q.CorrectAnswer, q.IncorrectAnswers)

	turnID := r.currentTurnID
	attempted := set.New[string]()
	attempted.Insert(turnID)

	r.activeQuestion = &ActiveQuestion{
		ID:                 q.ID,
		Stage:              StageAwaitingHostDecision,
		AssignedTo:         turnID,
		AnsweringPlayerID:  turnID,
		AttemptedPlayerIDs: attempted,
		TurnIndex:          r.currentTurnIndex,
		Category:           slotCategory,
		Difficulty:         q.Difficulty,
		Question:           q.Question,
		CorrectAnswer:      q.CorrectAnswer,
		IncorrectAnswers:   q.IncorrectAnswers,
		Choices:            choices,
		Points:             questionsource.PointsForDifficulty(q.Difficulty),
	}
	r.lastResult = nil
	r.buzzOrder.Init()
	for _, p := range r.players {
		p.BuzzedAt = nil
	}

	r.broadcastLocked()
	return nil
}

// OpenBuzzers transitions the active question to openForBuzz (op:
// openBuzzers, host-only).
func (r *Room) OpenBuzzers() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openBuzzersLocked()
}

func (r *Room) openBuzzersLocked() error {
	aq := r.activeQuestion
	if aq == nil {
		return apperror.New(apperror.NoActiveQuestion)
	}
	if aq.Stage != StageAwaitingHostDecision {
		return apperror.New(apperror.BuzzersAlreadyOpen)
	}

	if aq.AnsweringPlayerID != "" {
		aq.AttemptedPlayerIDs.Insert(aq.AnsweringPlayerID)
		aq.AnsweringPlayerID = ""
	}
	aq.Stage = StageOpenForBuzz
	for _, p := range r.players {
		p.BuzzedAt = nil
	}

	r.broadcastLocked()
	return nil
}

// Buzz registers playerID's claim to answer (op: buzz, player self).
func (r *Room) Buzz(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return apperror.New(apperror.PlayerNotFound)
	}

	aq := r.activeQuestion
	if aq == nil || aq.Stage != StageOpenForBuzz {
		return apperror.New(apperror.BuzzNotAvailable)
	}
	if aq.AttemptedPlayerIDs.Has(playerID) {
		return apperror.New(apperror.AlreadyAttempted)
	}

	now := r.nowMs()
	aq.AnsweringPlayerID = playerID
	aq.AttemptedPlayerIDs.Insert(playerID)
	aq.Stage = StageAwaitingHostDecision
	r.players[playerID].BuzzedAt = &now
	r.buzzOrder.PushBack(BuzzEntry{PlayerID: playerID, At: now})

	r.broadcastLocked()
	return nil
}

// MarkCorrect awards points to the effective answering player and finishes
// the question (op: markCorrect, host-only).
func (r *Room) MarkCorrect(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	aq := r.activeQuestion
	if aq == nil {
		return apperror.New(apperror.NoActiveQuestion)
	}
	effective := playerID
	if effective == "" {
		effective = aq.AnsweringPlayerID
	}
	if effective == "" {
		return apperror.New(apperror.NoAnsweringPlayer)
	}
	player, ok := r.players[effective]
	if !ok {
		return apperror.New(apperror.PlayerNotFound)
	}

	player.Score += aq.Points
	r.usedQuestions.Insert(aq.ID)
	r.lastResult = &QuestionResult{
		QuestionID:        aq.ID,
		Category:          aq.Category,
		Difficulty:        aq.Difficulty,
		Question:          aq.Question,
		CorrectAnswer:     aq.CorrectAnswer,
		AnsweredCorrectly: true,
		AnsweredBy:        effective,
		PointsAwarded:     aq.Points,
	}

	r.finishLocked()
	return nil
}

// MarkIncorrect resolves the active question as missed, or — if
// openBuzzers is true — reopens buzzers for another attempt (op:
// markIncorrect, host-only).
func (r *Room) MarkIncorrect(openBuzzers bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	aq := r.activeQuestion
	if aq == nil {
		return apperror.New(apperror.NoActiveQuestion)
	}

	if aq.AnsweringPlayerID != "" {
		aq.AttemptedPlayerIDs.Insert(aq.AnsweringPlayerID)
		aq.AnsweringPlayerID = ""
	}

	if openBuzzers {
		return r.openBuzzersLocked()
	}

	r.usedQuestions.Insert(aq.ID)
	r.lastResult = &QuestionResult{
		QuestionID:        aq.ID,
		Category:          aq.Category,
		Difficulty:        aq.Difficulty,
		Question:          aq.Question,
		CorrectAnswer:     aq.CorrectAnswer,
		AnsweredCorrectly: false,
		PointsAwarded:     0,
	}
	r.finishLocked()
	return nil
}

// Cancel discards the active question without awarding points or advancing
// turn (op: cancel, host-only). The consumed category slot is not released.
func (r *Room) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeQuestion == nil {
		return nil
	}
	r.activeQuestion = nil
	r.buzzOrder.Init()
	for _, p := range r.players {
		p.BuzzedAt = nil
	}
	r.broadcastLocked()
	return nil
}

// finishLocked implements the finish() helper: clears the active question
// and advances turn from the question's captured turnIndex, never the live
// currentTurnIndex, so mid-question setTurn calls do not perturb rotation.
func (r *Room) finishLocked() {
	turnIndex := r.activeQuestion.TurnIndex
	r.activeQuestion = nil
	r.buzzOrder.Init()
	for _, p := range r.players {
		p.BuzzedAt = nil
	}

	if len(r.turnOrder) == 0 {
		r.currentTurnIndex = noTurn
		r.currentTurnID = ""
	} else {
		for step := 0; step < len(r.turnOrder); step++ {
			idx := (turnIndex + 1 + step) % len(r.turnOrder)
			candidate := r.turnOrder[idx]
			if _, present := r.players[candidate]; present {
				r.currentTurnIndex = idx
				r.currentTurnID = candidate
				break
			}
		}
	}

	r.broadcastLocked()
}

// RemovePlayer deletes a player, splices turnOrder, scrubs every dangling
// reference to the player, and closes their connections (op: removePlayer).
func (r *Room) RemovePlayer(playerID string) error {
	r.mu.Lock()

	if _, ok := r.players[playerID]; !ok {
		r.mu.Unlock()
		return apperror.New(apperror.PlayerNotFound)
	}

	removedIdx := indexOf(r.turnOrder, playerID)
	delete(r.players, playerID)
	if removedIdx >= 0 {
		r.turnOrder = append(r.turnOrder[:removedIdx], r.turnOrder[removedIdx+1:]...)
	}

	switch {
	case len(r.turnOrder) == 0:
		r.currentTurnIndex = noTurn
		r.currentTurnID = ""
	case removedIdx < 0:
		// removed player was not in turn order (shouldn't happen); leave as-is
	case r.currentTurnIndex > removedIdx:
		r.currentTurnIndex--
		r.currentTurnID = r.turnOrder[r.currentTurnIndex]
	case r.currentTurnIndex >= len(r.turnOrder):
		r.currentTurnIndex = 0
		r.currentTurnID = r.turnOrder[0]
	default:
		r.currentTurnID = r.turnOrder[r.currentTurnIndex]
	}
	if r.currentTurnID == playerID {
		if len(r.turnOrder) == 0 {
			r.currentTurnID = ""
		} else {
			r.currentTurnID = r.turnOrder[r.currentTurnIndex]
		}
	}

	if aq := r.activeQuestion; aq != nil {
		aq.AttemptedPlayerIDs.Delete(playerID)
		if aq.AssignedTo == playerID {
			aq.AssignedTo = ""
		}
		if aq.AnsweringPlayerID == playerID {
			aq.AnsweringPlayerID = ""
		}
	}

	toClose := r.connections.RemoveByPlayerID(playerID)
	r.broadcastLocked()
	r.mu.Unlock()

	for _, c := range toClose {
		_ = c.Sink.Close()
	}
	return nil
}

// DestroyRoom notifies every live connection once with a closing error
// frame, then closes them all (op: destroyRoom, host-only). The caller
// (CommandDispatcher/registry) is responsible for removing the room from
// the registry.
func (r *Room) DestroyRoom() {
	r.mu.Lock()
	conns := r.connections.Snapshot()
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Sink.WriteJSON(map[string]string{
			"type":    "error",
			"message": "Session closed by host",
		})
		_ = c.Sink.Close()
	}

	r.mu.Lock()
	for _, c := range conns {
		r.connections.Remove(c)
	}
	r.mu.Unlock()
}

func indexOf(ids []string, target string) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func shuffledChoices(correct string, incorrect []string) []string {
	choices := make([]string, 0, len(incorrect)+1)
	choices = append(choices, correct)
	choices = append(choices, incorrect...)
	rand.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices
}
