package room

// PlayerRef is a dangling-id-safe cross-reference: {playerId, name}, or nil
// if the referenced player no longer exists. Every cross-reference field in
// a Snapshot (currentTurn, answeredBy, assignedTo, answeringPlayer, and each
// buzzOrder entry's player) goes through playerRefLocked so a disappeared
// player never surfaces as a raw id.
type PlayerRef struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerView is one player's projection within a Snapshot.
type PlayerView struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsTurn   bool   `json:"isTurn"`
	BuzzedAt *int64 `json:"buzzedAt,omitempty"`
}

// ActiveQuestionView is the role-aware projection of an ActiveQuestion.
// CorrectAnswer and Choices are populated only for the host role.
type ActiveQuestionView struct {
	ID                 string     `json:"id"`
	Stage              Stage      `json:"stage"`
	Category           string     `json:"category"`
	Difficulty         string     `json:"difficulty"`
	Question           string     `json:"question"`
	Points             int        `json:"points"`
	AssignedTo         *PlayerRef `json:"assignedTo"`
	AnsweringPlayer    *PlayerRef `json:"answeringPlayer"`
	AttemptedPlayerIDs []string   `json:"attemptedPlayerIds"`
	CorrectAnswer      string     `json:"correctAnswer,omitempty"`
	Choices            []string   `json:"choices,omitempty"`
}

// QuestionResultView is the role-independent projection of QuestionResult.
type QuestionResultView struct {
	QuestionID        string     `json:"questionId"`
	Category          string     `json:"category"`
	Difficulty        string     `json:"difficulty"`
	AnsweredCorrectly bool       `json:"answeredCorrectly"`
	AnsweredBy        *PlayerRef `json:"answeredBy"`
	PointsAwarded     int        `json:"pointsAwarded"`
}

// BuzzEntryView is one entry of the host-only buzz draw-order display.
type BuzzEntryView struct {
	Player *PlayerRef `json:"player"`
	At     int64      `json:"at"`
}

// Snapshot is the role-aware projection of room state sent to a connection
// after every transition (§4.E "Snapshot construction").
type Snapshot struct {
	Code            string               `json:"code"`
	CreatedAt       int64                `json:"createdAt"`
	Players         []PlayerView         `json:"players"`
	CurrentTurn     *PlayerRef           `json:"currentTurn"`
	ActiveQuestion  *ActiveQuestionView  `json:"activeQuestion"`
	QuestionActive  bool                 `json:"questionActive"`
	LastResult      *QuestionResultView  `json:"lastResult,omitempty"`
	BuzzOrder       []BuzzEntryView      `json:"buzzOrder,omitempty"`
	ShareCodeExpiresAt *int64            `json:"shareCodeExpiresAt,omitempty"`
	ShareCode          string            `json:"shareCode,omitempty"`
	ShareCodeIssuedAt  *int64            `json:"shareCodeIssuedAt,omitempty"`
}

// playerRefLocked resolves id to a PlayerRef or nil. Must be called with
// r.mu held.
func (r *Room) playerRefLocked(id string) *PlayerRef {
	if id == "" {
		return nil
	}
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	return &PlayerRef{PlayerID: p.ID, Name: p.Name}
}

// Snapshot builds a role-aware snapshot for external read paths (HTTP GET,
// a connection's initial state). role=RolePlayer is used for any
// unauthenticated or player-authenticated read; role=RoleHost additionally
// includes correct answers, choices, the share code digits, and buzz order.
func (r *Room) Snapshot(role ConnectionRole) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildSnapshotLocked(role, "")
}

func (r *Room) buildSnapshotLocked(role ConnectionRole, viewerPlayerID string) *Snapshot {
	r.expireShareCodeLocked()

	players := make([]PlayerView, 0, len(r.players))
	for _, id := range r.sortedPlayerIDsLocked() {
		p := r.players[id]
		players = append(players, PlayerView{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			IsTurn:   r.currentTurnID == p.ID,
			BuzzedAt: p.BuzzedAt,
		})
	}

	snap := &Snapshot{
		Code:        r.code,
		CreatedAt:   r.createdAt,
		Players:     players,
		CurrentTurn: r.playerRefLocked(r.currentTurnID),
	}

	if aq := r.activeQuestion; aq != nil {
		attempted := make([]string, 0, aq.AttemptedPlayerIDs.Len())
		for id := range aq.AttemptedPlayerIDs {
			attempted = append(attempted, id)
		}
		view := &ActiveQuestionView{
			ID:                 aq.ID,
			Stage:              aq.Stage,
			Category:           aq.Category,
			Difficulty:         aq.Difficulty,
			Question:           aq.Question,
			Points:             aq.Points,
			AssignedTo:         r.playerRefLocked(aq.AssignedTo),
			AnsweringPlayer:    r.playerRefLocked(aq.AnsweringPlayerID),
			AttemptedPlayerIDs: attempted,
		}
		if role == RoleHost {
			view.CorrectAnswer = aq.CorrectAnswer
			view.Choices = aq.Choices
		}
		snap.ActiveQuestion = view
		snap.QuestionActive = aq.Stage == StageOpenForBuzz
	}

	if r.lastResult != nil {
		snap.LastResult = &QuestionResultView{
			QuestionID:        r.lastResult.QuestionID,
			Category:          r.lastResult.Category,
			Difficulty:        r.lastResult.Difficulty,
			AnsweredCorrectly: r.lastResult.AnsweredCorrectly,
			AnsweredBy:        r.playerRefLocked(r.lastResult.AnsweredBy),
			PointsAwarded:     r.lastResult.PointsAwarded,
		}
	}

	if r.shareCode != "" {
		expires := r.shareCodeExpiresAt
		snap.ShareCodeExpiresAt = &expires
		if role == RoleHost {
			snap.ShareCode = r.shareCode
			issued := r.shareCodeIssuedAt
			snap.ShareCodeIssuedAt = &issued
		}
	}

	if role == RoleHost {
		for e := r.buzzOrder.Front(); e != nil; e = e.Next() {
			entry := e.Value.(BuzzEntry)
			snap.BuzzOrder = append(snap.BuzzOrder, BuzzEntryView{
				Player: r.playerRefLocked(entry.PlayerID),
				At:     entry.At,
			})
		}
	}

	return snap
}

// sortedPlayerIDsLocked returns player ids in turnOrder-then-leftover order,
// giving snapshots a stable, deterministic player ordering.
func (r *Room) sortedPlayerIDsLocked() []string {
	seen := make(map[string]struct{}, len(r.players))
	ordered := make([]string, 0, len(r.players))
	for _, id := range r.turnOrder {
		if _, ok := r.players[id]; ok {
			ordered = append(ordered, id)
			seen[id] = struct{}{}
		}
	}
	for id := range r.players {
		if _, ok := seen[id]; !ok {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

// broadcastLocked builds a snapshot per connection and hands it to the
// sink while mu is held (§4.C, §5). This relies on Sink.WriteJSON being
// non-blocking — the real transport enqueues onto a per-connection buffered
// channel drained by its own writer goroutine (mirroring the teacher's
// Client.send pattern), so the genuinely blocking network I/O never
// happens under the room lock even though the enqueue call does. A sink
// that reports failure (full/closed channel) is pruned inline; a dead sink
// never aborts delivery to the rest.
func (r *Room) broadcastLocked() {
	for _, c := range r.connections.Snapshot() {
		if c.Sink.Closed() {
			r.connections.pruneDead(c)
			continue
		}
		snap := r.buildSnapshotLocked(c.Role, c.PlayerID)
		if err := c.Sink.WriteJSON(map[string]any{
			"type":    "state",
			"payload": snap,
		}); err != nil {
			r.connections.pruneDead(c)
		}
	}
}
