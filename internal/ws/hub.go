package ws

import (
	"encoding/json"
	"sync"

	"basmah/internal/domain"
	"basmah/internal/models"
)

// Client represents a single WebSocket connection with admin context.
type Client struct {
	UserID string
	Role   string
	// BookingID narrows the feed to a single booking when set.
	BookingID string
	Send      chan []byte
	Hub       *Hub
	mu        sync.Mutex
	closed    bool
}

func NewClient(userID, role, bookingID string) *Client {
	return &Client{UserID: userID, Role: role, BookingID: bookingID, Send: make(chan []byte, 256)}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	c.mu.Unlock()
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// trySend drops the message when the client is slow or already closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) wants(e *models.AdminActionLog) bool {
	if c.BookingID == "" {
		return true
	}
	return e.BookingID != nil && *e.BookingID == c.BookingID
}

// Hub maintains the set of active clients and broadcasts to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// userID -> clients (one admin can have multiple tabs open)
	byUser map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// BroadcastToUser sends payload to every open session of one admin.
func (h *Hub) BroadcastToUser(userID string, payload interface{}) {
	data, _ := json.Marshal(payload)
	for _, c := range h.userClients(userID) {
		c.trySend(data)
	}
}

// BroadcastAll sends payload to every session regardless of its filter.
func (h *Hub) BroadcastAll(payload interface{}) {
	data, _ := json.Marshal(payload)
	for _, c := range h.snapshot() {
		c.trySend(data)
	}
}

// Publish pushes a committed audit entry to every subscribed admin. When the
// entry disables an account, that account's own feed sessions are told and
// closed.
func (h *Hub) Publish(e *models.AdminActionLog) {
	data, _ := json.Marshal(map[string]interface{}{"type": "admin_action", "entry": e})
	for _, c := range h.snapshot() {
		if c.wants(e) {
			c.trySend(data)
		}
	}
	if revokesSession(e.Action) && e.TargetUserID != nil {
		h.BroadcastToUser(*e.TargetUserID, map[string]string{"type": "session_revoked", "reason": e.Action})
		h.closeUser(*e.TargetUserID)
	}
}

func revokesSession(action string) bool {
	switch action {
	case domain.ActionAccountBlocked, domain.ActionAccountDeactivated, domain.ActionDeleteAccount:
		return true
	}
	return false
}

func (h *Hub) userClients(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) closeUser(userID string) {
	for _, c := range h.userClients(userID) {
		c.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
