package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"basmah/config"
	"basmah/internal/auth"
	"basmah/internal/domain"
	"basmah/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestPublishRespectsBookingFilter(t *testing.T) {
	h := NewHub()
	all := NewClient("a1", domain.RoleAdmin, "")
	one := NewClient("a2", domain.RoleAdmin, "b1")
	h.Register(all)
	h.Register(one)

	h.Publish(&models.AdminActionLog{Action: domain.ActionStatusChange, BookingID: strp("b2")})
	h.Publish(&models.AdminActionLog{Action: domain.ActionDeleteTicket, BookingID: strp("b1")})

	assert.Len(t, all.Send, 2)
	require.Len(t, one.Send, 1)
	var msg struct {
		Type  string                `json:"type"`
		Entry models.AdminActionLog `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(<-one.Send, &msg))
	assert.Equal(t, "admin_action", msg.Type)
	assert.Equal(t, domain.ActionDeleteTicket, msg.Entry.Action)
}

func TestClosedClientIsUnregistered(t *testing.T) {
	h := NewHub()
	c := NewClient("a1", domain.RoleAdmin, "")
	h.Register(c)
	assert.Equal(t, 1, h.ClientCount())

	c.Close()
	c.Close()
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, c.trySend([]byte("x")))
	h.BroadcastAll(map[string]string{"type": "noop"})
}

func TestBroadcastAllIgnoresBookingFilter(t *testing.T) {
	h := NewHub()
	all := NewClient("a1", domain.RoleAdmin, "")
	one := NewClient("a2", domain.RoleAdmin, "b1")
	h.Register(all)
	h.Register(one)

	h.BroadcastAll(map[string]string{"type": "reconcile_report"})
	assert.Len(t, all.Send, 1)
	assert.Len(t, one.Send, 1)
}

func TestDisablingAccountRevokesItsSessions(t *testing.T) {
	h := NewHub()
	watcher := NewClient("a1", domain.RoleAdmin, "")
	tab1 := NewClient("a2", domain.RoleAdmin, "")
	tab2 := NewClient("a2", domain.RoleAdmin, "b9")
	h.Register(watcher)
	h.Register(tab1)
	h.Register(tab2)

	h.Publish(&models.AdminActionLog{Action: domain.ActionUpdateUser, TargetUserID: strp("a2")})
	assert.Equal(t, 3, h.ClientCount())
	<-watcher.Send
	<-tab1.Send

	h.Publish(&models.AdminActionLog{Action: domain.ActionAccountBlocked, TargetUserID: strp("a2")})
	assert.Equal(t, 1, h.ClientCount())
	assert.Len(t, watcher.Send, 1)

	var msgs []map[string]interface{}
	for raw := range tab1.Send {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &m))
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 2)
	assert.Equal(t, "admin_action", msgs[0]["type"])
	assert.Equal(t, "session_revoked", msgs[1]["type"])
	assert.Equal(t, domain.ActionAccountBlocked, msgs[1]["reason"])

	raw, ok := <-tab2.Send
	require.True(t, ok)
	assert.Contains(t, string(raw), "session_revoked")
	_, ok = <-tab2.Send
	assert.False(t, ok, "send channel closed")
}

func TestAdminFeedOverWebsocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Hour, Issuer: "test"}
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", UpgradeAdminFeed(cfg, hub))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	userTok, err := auth.GenerateAccessToken(cfg, "u1", "u@example.com", "U", domain.RoleUser)
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+userTok, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, "a1", "a@example.com", "Rana", domain.RoleAdmin)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, hello, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hello"}`, string(hello))

	hub.Publish(&models.AdminActionLog{ActorID: "a1", Action: domain.ActionWalletAdd})
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), domain.ActionWalletAdd)
}
