package transport

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/dispatcher"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/ratelimit"
	"github.com/alex-gusto/buzzer/internal/v1/room"
)

// Hub owns the WebSocket upgrade and the register/buzz protocol described in
// §6.2. It is the transport-layer counterpart of the teacher's session.Hub,
// narrowed to connection handling — room lifecycle lives in registry, and
// command execution lives in dispatcher.
type Hub struct {
	dispatcher     *dispatcher.Dispatcher
	limiter        *ratelimit.Limiter
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// New constructs a Hub. limiter may be nil to skip per-IP WS rate limiting
// (e.g. in tests).
func New(d *dispatcher.Dispatcher, limiter *ratelimit.Limiter, allowedOrigins []string) *Hub {
	h := &Hub{dispatcher: d, limiter: limiter, allowedOrigins: allowedOrigins}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return true
		}
	}
	return false
}

// incomingMessage is the discriminated union over every client->server frame
// (§6.2): register carries either a host secret or a player id depending on
// role; buzz carries nothing else.
type incomingMessage struct {
	Type       string `json:"type"`
	Role       string `json:"role,omitempty"`
	HostSecret string `json:"hostSecret,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
}

// ServeWS upgrades the request and runs the connection's register/buzz loop
// until it disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	if h.limiter != nil && !h.limiter.CheckWebSocket(c) {
		return
	}

	code := c.Param("code")
	reg := h.dispatcher.Registry()
	r, err := reg.GetRoom(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": apperror.Message(apperror.RoomNotFound)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn)
	metrics.ConnectionsActive.Inc()
	go client.writePump()

	session := &connectionSession{
		client:     client,
		room:       r,
		roomCode:   code,
		registry:   reg,
		dispatcher: h.dispatcher,
	}
	client.readPump(session.handle)
	session.onDisconnect()
	metrics.ConnectionsActive.Dec()
}

// cleanupNotifier is the slice of Registry a connectionSession needs, kept
// narrow so tests can substitute a stub instead of a full Registry.
type cleanupNotifier interface {
	CancelPendingCleanup(code string)
	ScheduleCleanupIfEmpty(code string)
}

// connectionSession tracks the one-time registration state of a single
// connection and routes every subsequent frame, mirroring the teacher's
// split between Client (transport) and a per-message router.
type connectionSession struct {
	client     *Client
	room       *room.Room
	roomCode   string
	registry   cleanupNotifier
	dispatcher *dispatcher.Dispatcher

	registered bool
	role       room.ConnectionRole
	playerID   string
	conn       *room.Connection
}

func (s *connectionSession) handle(data []byte) {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.writeError("Malformed message")
		return
	}

	switch msg.Type {
	case "register":
		s.handleRegister(msg)
	case "buzz":
		s.handleBuzz()
	default:
		s.writeError("Unknown message type")
	}
}

func (s *connectionSession) handleRegister(msg incomingMessage) {
	if s.registered {
		s.writeError("Already registered")
		return
	}

	switch msg.Role {
	case "host":
		if !s.room.CheckHostSecret(msg.HostSecret) {
			s.writeError(apperror.Message(apperror.Forbidden))
			return
		}
		s.role, s.playerID = room.RoleHost, ""
	case "player":
		if err := s.room.Reconnect(msg.PlayerID); err != nil {
			s.writeError(apperror.Message(apperror.PlayerNotFound))
			return
		}
		s.role, s.playerID = room.RolePlayer, msg.PlayerID
	default:
		s.writeError("register requires role host or player")
		return
	}

	s.conn = &room.Connection{Sink: s.client, Role: s.role, PlayerID: s.playerID}
	snapshot := s.room.AddConnection(s.conn)
	s.registered = true
	s.registry.CancelPendingCleanup(s.roomCode)

	_ = s.client.WriteJSON(map[string]any{
		"type":     "registered",
		"role":     string(s.role),
		"playerId": s.playerID,
	})
	_ = s.client.WriteJSON(map[string]any{
		"type":    "state",
		"payload": snapshot,
	})
}

func (s *connectionSession) handleBuzz() {
	if !s.registered {
		s.writeError("Register before sending other messages")
		return
	}
	if s.role != room.RolePlayer {
		s.writeError("Only players may buzz")
		return
	}
	if err := s.dispatcher.Buzz(s.roomCode, s.playerID); err != nil {
		s.writeError(apperror.Message(deriveCode(err)))
	}
}

func (s *connectionSession) onDisconnect() {
	if s.conn != nil {
		s.room.RemoveConnection(s.conn)
	}
	_ = s.client.Close()
	s.registry.ScheduleCleanupIfEmpty(s.roomCode)
}

func (s *connectionSession) writeError(message string) {
	_ = s.client.WriteJSON(map[string]any{"type": "error", "message": message})
}

func deriveCode(err error) apperror.Code {
	code, _ := apperror.Classify(err)
	return code
}
