// Package middleware contains Gin middleware shared by the HTTP and
// WebSocket upgrade endpoints.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
)

// HeaderXCorrelationID is the header carrying the correlation id across a
// request/response pair.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID stamps every request with a correlation id, reusing one
// supplied by the caller or minting a fresh uuid, then attaches it to both
// the response header and the request context so downstream logging picks
// it up automatically.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(HeaderXCorrelationID, id)

		ctx := logging.WithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(logging.CorrelationIDKey), id)

		c.Next()
	}
}
