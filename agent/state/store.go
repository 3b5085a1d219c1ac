package state

import (
	"context"
	"errors"
	"sync"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence contract used by the orchestrator and the HTTP
// layer. Implementations are last-write-wins; turn ordering is enforced by
// TurnLocks, not by the backend.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// TurnLocks serializes turns per session id: no two turns for the same
// session may interleave, while turns for different sessions run freely.
type TurnLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTurnLocks() *TurnLocks {
	return &TurnLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the session's turn lock is held and returns the
// release function. Lock entries are kept for the session's lifetime; the
// per-session footprint is one mutex.
func (t *TurnLocks) Acquire(sessionID string) func() {
	t.mu.Lock()
	l, ok := t.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[sessionID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
