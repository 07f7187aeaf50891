package notify

import (
	"log"
	"sync"
)

// Session is a live client connection owned by the transport layer. The hub
// holds only a non-owning registration and drops it on send failure.
type Session interface {
	SendJSON(v interface{}) error
	Close() error
}

// Hub fans payment events out to the live sessions of a user. Delivery is
// best-effort to currently registered sessions; clients that connect later
// poll the ledger instead. The hub is constructed at process start and
// injected, not ambient global state.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string][]Session
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string][]Session)}
}

// Register adds a session for a user. A user may hold several concurrent
// sessions (multiple browser tabs).
func (h *Hub) Register(userID string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[userID] = append(h.sessions[userID], s)
}

// Unregister removes one session of a user. Unknown sessions are ignored.
func (h *Hub) Unregister(userID string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(userID, s)
}

func (h *Hub) removeLocked(userID string, s Session) {
	list := h.sessions[userID]
	for i, existing := range list {
		if existing == s {
			h.sessions[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.sessions[userID]) == 0 {
		delete(h.sessions, userID)
	}
}

// Push sends the payload to every live session of the user and returns the
// number of successful deliveries. A failing session is unregistered and
// closed; the fan-out continues to the remaining sessions.
func (h *Hub) Push(userID string, payload interface{}) int {
	h.mu.RLock()
	list := append([]Session(nil), h.sessions[userID]...)
	h.mu.RUnlock()

	delivered := 0
	var dead []Session
	for _, s := range list {
		if err := s.SendJSON(payload); err != nil {
			log.Printf("notify: dropping session for user %s: %v", userID, err)
			dead = append(dead, s)
			continue
		}
		delivered++
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, s := range dead {
			h.removeLocked(userID, s)
		}
		h.mu.Unlock()
		for _, s := range dead {
			_ = s.Close()
		}
	}
	return delivered
}

// Broadcast pushes the payload to every registered user.
func (h *Hub) Broadcast(payload interface{}) {
	h.mu.RLock()
	users := make([]string, 0, len(h.sessions))
	for userID := range h.sessions {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	for _, userID := range users {
		h.Push(userID, payload)
	}
}

// SessionCount reports the number of live sessions for a user.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
