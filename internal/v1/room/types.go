// Package room implements the room core: the per-room state machine that
// sequences questions, arbitrates buzzes, rotates turns, tracks used slots,
// manages share-code lifecycle, and projects role-aware snapshots to a
// fluctuating set of connections.
package room

import (
	"k8s.io/utils/set"
)

// Stage is the phase of the room's single active question.
type Stage string

const (
	StageAwaitingHostDecision Stage = "awaitingHostDecision"
	StageOpenForBuzz          Stage = "openForBuzz"
)

// ConnectionRole tags a live connection with the capability it was granted
// at registration time.
type ConnectionRole string

const (
	RoleHost   ConnectionRole = "host"
	RolePlayer ConnectionRole = "player"
)

// Player is a participant identified by a server-issued id; may reconnect.
type Player struct {
	ID       string
	Name     string
	JoinedAt int64 // unix millis
	Score    int
	BuzzedAt *int64 // unix millis, nil when not currently buzzed
}

// ActiveQuestion is the single question currently in play in a room, if any.
type ActiveQuestion struct {
	ID                string
	Stage             Stage
	AssignedTo        string // player id whose turn triggered activation
	AnsweringPlayerID string // player id the host is currently judging, "" if none
	AttemptedPlayerIDs set.Set[string]
	TurnIndex         int // turn index captured at activation, used by finish()
	Category          string
	Difficulty        string
	Question          string
	CorrectAnswer     string
	IncorrectAnswers  []string
	Choices           []string
	Points            int
}

// QuestionResult is a projection of a finished ActiveQuestion plus its
// outcome, replaced on every finish().
type QuestionResult struct {
	QuestionID        string
	Category          string
	Difficulty        string
	Question          string
	CorrectAnswer     string
	AnsweredCorrectly bool
	AnsweredBy        string // player id, "" if no one answered correctly
	PointsAwarded     int
}

// BuzzEntry records one winning buzz for the host-facing draw-order display.
// Rejected buzzes (BuzzNotAvailable, AlreadyAttempted) are not recorded.
type BuzzEntry struct {
	PlayerID string
	At       int64 // unix millis
}
