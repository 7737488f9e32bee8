package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/config"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	l, err := New(&config.Config{
		RateLimitAPIPublic: "5-M",
		RateLimitAPIRooms:  "5-M",
		RateLimitWSIP:      "5-M",
	})
	require.NoError(t, err)
	return l
}

func TestNew_InvalidRateReturnsError(t *testing.T) {
	_, err := New(&config.Config{RateLimitAPIPublic: "not-a-rate", RateLimitAPIRooms: "5-M", RateLimitWSIP: "5-M"})
	assert.Error(t, err)
}

func TestPublic_AllowsUpToLimitThenRejects(t *testing.T) {
	l := newTestLimiter(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(l.Public())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "5", resp.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestRooms_IsIndependentFromPublic(t *testing.T) {
	l := newTestLimiter(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/public", l.Public(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/rooms", l.Rooms(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)

	// the rooms bucket is keyed under its own prefix in the shared store, unaffected by /public's exhaustion
	req2 := httptest.NewRequest(http.MethodPost, "/rooms", nil)
	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, req2)
	assert.Equal(t, http.StatusOK, resp2.Code)
}

func TestCheckWebSocket_AllowsUpToLimitThenRejects(t *testing.T) {
	l := newTestLimiter(t)
	gin.SetMode(gin.TestMode)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ws/ABCD", nil)
		assert.True(t, l.CheckWebSocket(c))
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/ABCD", nil)
	assert.False(t, l.CheckWebSocket(c))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
