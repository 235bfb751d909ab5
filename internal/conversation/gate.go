package conversation

import (
	"strings"
	"sync"
)

// userGate serialises events per user: a second event arriving while the
// first is still in flight is dropped, never queued.
type userGate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newUserGate() *userGate {
	return &userGate{inFlight: make(map[string]struct{})}
}

// tryAcquire reserves the user's slot. It reports false when an event for the
// same user is already being handled.
func (g *userGate) tryAcquire(userID string) bool {
	key := strings.TrimSpace(userID)
	if key == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

func (g *userGate) release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, strings.TrimSpace(userID))
}
