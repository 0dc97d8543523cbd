package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"basmah/config"
	"basmah/internal/auth"
	"basmah/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInMemoryRateLimiter(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)
}

func TestAdminChain(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Hour, Issuer: "test"}
	r := gin.New()
	r.GET("/x", AuthRequired(cfg), AdminRequired(), func(c *gin.Context) {
		a := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "name": a.Name, "type": a.Type})
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage").Code)

	userTok, err := auth.GenerateAccessToken(cfg, "u1", "u@example.com", "U", domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+userTok).Code)

	adminTok, err := auth.GenerateAccessToken(cfg, "a1", "a@example.com", "Rana", domain.RoleAdmin)
	require.NoError(t, err)
	w := call("Bearer " + adminTok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"a1","name":"Rana","type":"admin"}`, w.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(), RateLimit(NewInMemoryRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
