package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/alex-gusto/buzzer/internal/v1/ratelimit"
	"github.com/alex-gusto/buzzer/internal/v1/transport"
)

// RegisterRoutes wires every §6.1 endpoint and the §6.2 WebSocket upgrade
// onto r. limiter may be nil (tests, or rate limiting disabled).
func RegisterRoutes(r gin.IRouter, h *Handlers, hub *transport.Hub, limiter *ratelimit.Limiter) {
	public := noopIfNil(limiter, (*ratelimit.Limiter).Public)
	rooms := noopIfNil(limiter, (*ratelimit.Limiter).Rooms)

	r.POST("/api/session", rooms, h.CreateRoom)
	r.GET("/api/rooms", public, h.ListRooms)
	r.GET("/api/session/:code", public, h.GetSnapshot)
	r.POST("/api/session/:code/join", rooms, h.Join)
	r.POST("/api/session/:code/leave", rooms, h.Leave)
	r.POST("/api/session/:code/destroy", rooms, h.Destroy)
	r.POST("/api/session/:code/share", rooms, h.IssueShare)
	r.POST("/api/share/claim", public, h.ClaimShare)
	r.POST("/api/session/:code/turn", rooms, h.SetTurn)
	r.POST("/api/session/:code/question/activate", rooms, h.Activate)
	r.POST("/api/session/:code/question/open", rooms, h.OpenBuzzers)
	r.POST("/api/session/:code/question/mark", rooms, h.Mark)
	r.POST("/api/session/:code/question/cancel", rooms, h.Cancel)

	r.GET("/ws/:code", hub.ServeWS)
}

func noopIfNil(limiter *ratelimit.Limiter, method func(*ratelimit.Limiter) gin.HandlerFunc) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return method(limiter)
}
