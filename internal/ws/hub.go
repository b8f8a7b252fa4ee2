package ws

import (
	"encoding/json"
	"sync"
)

// Event is the envelope for everything that crosses a websocket.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub is the process-wide presence and room registry: which users have live
// sessions, and which sessions subscribe to which chat. It grows on connect
// and shrinks on disconnect; persistence of the online flag is the
// gateway's job.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: map[string]map[*Client]struct{}{},
		rooms:    map[string]map[*Client]struct{}{},
	}
}

// Register adds a session and reports whether it is the user's first one.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[c.UserID] == nil {
		h.sessions[c.UserID] = map[*Client]struct{}{}
	}
	h.sessions[c.UserID][c] = struct{}{}
	return len(h.sessions[c.UserID]) == 1
}

// Unregister drops a session from the registry and every room it joined,
// and reports whether the user has no sessions left.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.sessions[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.UserID)
		}
	}

	for chatId := range c.rooms {
		if room, ok := h.rooms[chatId]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, chatId)
			}
		}
	}
	c.rooms = map[string]struct{}{}

	return h.sessions[c.UserID] == nil
}

// Join subscribes a session to a chat's room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, chatId string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatId] == nil {
		h.rooms[chatId] = map[*Client]struct{}{}
	}
	h.rooms[chatId][c] = struct{}{}
	c.rooms[chatId] = struct{}{}
}

// Broadcast delivers the event to every session in the chat's room, the
// sender's own sessions included: clients rely on the echo to pick up the
// server-assigned message id.
func (h *Hub) Broadcast(chatId string, event string, data interface{}) {
	h.broadcast(chatId, nil, event, data)
}

// BroadcastExcept skips the originating session; typing indicators use it.
func (h *Hub) BroadcastExcept(chatId string, except *Client, event string, data interface{}) {
	h.broadcast(chatId, except, event, data)
}

func (h *Hub) broadcast(chatId string, except *Client, event string, data interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[chatId] {
		if c == except {
			continue
		}
		c.trySend(msg)
	}
}

// BroadcastAll delivers the event to every connected session.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, set := range h.sessions {
		for c := range set {
			c.trySend(msg)
		}
	}
}

// Online returns the ids of users with at least one live session.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}
