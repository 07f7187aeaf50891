package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	mu       sync.Mutex
	received []interface{}
	sendErr  error
	closed   bool
}

func (s *fakeSession) SendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, v)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestHubPushDeliversToAllSessions(t *testing.T) {
	hub := NewHub()
	tab1 := &fakeSession{}
	tab2 := &fakeSession{}
	hub.Register("user1", tab1)
	hub.Register("user1", tab2)

	delivered := hub.Push("user1", "payment_success")

	assert.Equal(t, 2, delivered)
	assert.Len(t, tab1.received, 1)
	assert.Len(t, tab2.received, 1)
}

func TestHubPushNoSessions(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Push("nobody", "payload"))
}

func TestHubPushPrunesDeadSessions(t *testing.T) {
	hub := NewHub()
	healthy := &fakeSession{}
	dead := &fakeSession{sendErr: errors.New("connection reset")}
	hub.Register("user1", healthy)
	hub.Register("user1", dead)

	delivered := hub.Push("user1", "payload")

	assert.Equal(t, 1, delivered)
	assert.True(t, dead.closed, "failing session must be closed")
	assert.Equal(t, 1, hub.SessionCount("user1"))

	// The healthy session keeps receiving after the prune.
	assert.Equal(t, 1, hub.Push("user1", "again"))
	assert.Len(t, healthy.received, 2)
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	s := &fakeSession{}
	hub.Register("user1", s)
	hub.Unregister("user1", s)

	assert.Equal(t, 0, hub.SessionCount("user1"))
	assert.Equal(t, 0, hub.Push("user1", "payload"))
}

func TestHubUnregisterUnknownSession(t *testing.T) {
	hub := NewHub()
	hub.Unregister("user1", &fakeSession{})
	assert.Equal(t, 0, hub.SessionCount("user1"))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	a := &fakeSession{}
	b := &fakeSession{}
	hub.Register("user1", a)
	hub.Register("user2", b)

	hub.Broadcast("maintenance")

	assert.Len(t, a.received, 1)
	assert.Len(t, b.received, 1)
}

func TestHubConcurrentRegisterAndPush(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := &fakeSession{}
			hub.Register("user1", s)
			hub.Unregister("user1", s)
		}()
		go func() {
			defer wg.Done()
			hub.Push("user1", "payload")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SessionCount("user1"))
}
