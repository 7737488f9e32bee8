// Package httpapi implements the REST surface of §6.1: thin Gin handlers
// that bind a request, call the matching CommandDispatcher method, and
// translate the result into the response shape the table specifies. Every
// handler is a few lines because the dispatcher already owns auth,
// resolution, and instrumentation — this layer only does wire translation,
// mirroring how thin the teacher's own Gin handlers are over its Hub.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/dispatcher"
	"github.com/alex-gusto/buzzer/internal/v1/room"
)

// Handlers holds the dependencies every REST handler needs.
type Handlers struct {
	dispatcher *dispatcher.Dispatcher
}

// New constructs Handlers over a Dispatcher.
func New(d *dispatcher.Dispatcher) *Handlers {
	return &Handlers{dispatcher: d}
}

// writeError classifies err through the taxonomy and writes {message} with
// the matching status, per §6.3/§6.4.
func writeError(c *gin.Context, err error) {
	code, status := apperror.Classify(err)
	c.JSON(status, gin.H{"message": apperror.Message(code)})
}

// CreateRoom handles POST /api/session.
func (h *Handlers) CreateRoom(c *gin.Context) {
	code, hostSecret, err := h.dispatcher.CreateRoom(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code, "hostSecret": hostSecret})
}

// ListRooms handles GET /api/rooms.
func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.ListRooms())
}

// GetSnapshot handles GET /api/session/:code.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	snapshot, err := h.dispatcher.GetSnapshot(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type joinRequest struct {
	Name string `json:"name"`
}

// Join handles POST /api/session/:code/join.
func (h *Handlers) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 32 {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	playerID, err := h.dispatcher.Join(c.Param("code"), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playerId": playerID})
}

type leaveRequest struct {
	PlayerID string `json:"playerId"`
}

// Leave handles POST /api/session/:code/leave.
func (h *Handlers) Leave(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if err := h.dispatcher.RemovePlayer(c.Param("code"), req.PlayerID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type hostSecretRequest struct {
	HostSecret string `json:"hostSecret"`
}

// Destroy handles POST /api/session/:code/destroy.
func (h *Handlers) Destroy(c *gin.Context) {
	var req hostSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if err := h.dispatcher.DestroyRoom(c.Param("code"), req.HostSecret); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// IssueShare handles POST /api/session/:code/share.
func (h *Handlers) IssueShare(c *gin.Context) {
	var req hostSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	shareCode, expiresAt, err := h.dispatcher.IssueShareCode(c.Param("code"), req.HostSecret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shareCode": shareCode, "expiresAt": expiresAt})
}

type claimShareRequest struct {
	ShareCode string `json:"shareCode"`
}

// ClaimShare handles POST /api/share/claim.
func (h *Handlers) ClaimShare(c *gin.Context) {
	var req claimShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	code, hostSecret, expiresAt, err := h.dispatcher.ClaimShareCode(req.ShareCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "hostSecret": hostSecret, "expiresAt": expiresAt})
}

type setTurnRequest struct {
	HostSecret string `json:"hostSecret"`
	PlayerID   string `json:"playerId"`
}

// SetTurn handles POST /api/session/:code/turn.
func (h *Handlers) SetTurn(c *gin.Context) {
	var req setTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if err := h.dispatcher.SetTurn(c.Param("code"), req.HostSecret, req.PlayerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type activateRequest struct {
	HostSecret string `json:"hostSecret"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// Activate handles POST /api/session/:code/question/activate.
func (h *Handlers) Activate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if req.Difficulty != "" && req.Difficulty != "easy" && req.Difficulty != "medium" && req.Difficulty != "hard" {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	err := h.dispatcher.Activate(c.Request.Context(), c.Param("code"), req.HostSecret, room.ActivateParams{
		Category:   req.Category,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// OpenBuzzers handles POST /api/session/:code/question/open.
func (h *Handlers) OpenBuzzers(c *gin.Context) {
	var req hostSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if err := h.dispatcher.OpenBuzzers(c.Param("code"), req.HostSecret); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type markRequest struct {
	HostSecret  string `json:"hostSecret"`
	Result      string `json:"result"`
	PlayerID    string `json:"playerId"`
	OpenBuzzers bool   `json:"openBuzzers"`
}

// Mark handles POST /api/session/:code/question/mark.
func (h *Handlers) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}

	var err error
	switch req.Result {
	case "correct":
		err = h.dispatcher.MarkCorrect(c.Param("code"), req.HostSecret, req.PlayerID)
	case "incorrect":
		err = h.dispatcher.MarkIncorrect(c.Param("code"), req.HostSecret, req.OpenBuzzers)
	default:
		err = apperror.New(apperror.ValidationError)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Cancel handles POST /api/session/:code/question/cancel.
func (h *Handlers) Cancel(c *gin.Context) {
	var req hostSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.ValidationError))
		return
	}
	if err := h.dispatcher.Cancel(c.Param("code"), req.HostSecret); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
