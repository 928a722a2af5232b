package session

import (
	"testing"
	"time"
)

type lockTestState struct{}

func (lockTestState) DialogueState() string { return "AWAITING_ID" }

func TestSweepPrunesOrphanedLocks(t *testing.T) {
	store := NewStore(time.Minute)

	for _, userID := range []string{"u1", "u2", "u3"} {
		store.Lock(userID)
		sess := store.Create(userID, lockTestState{})
		sess.LastActivity = time.Now().Add(-time.Hour)
	}
	store.Lock("never-had-session")

	if evicted := store.Sweep(); evicted != 3 {
		t.Fatalf("Sweep evicted %d, want 3", evicted)
	}

	store.mu.Lock()
	remaining := len(store.locks)
	store.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock table has %d entries after sweep, want 0", remaining)
	}
}

func TestSweepKeepsHeldLocks(t *testing.T) {
	store := NewStore(time.Minute)

	sess := store.Create("u1", lockTestState{})
	sess.LastActivity = time.Now().Add(-time.Hour)

	l := store.Lock("u1")
	l.Lock()
	defer l.Unlock()

	store.Sweep()

	store.mu.Lock()
	kept := store.locks["u1"]
	store.mu.Unlock()
	if kept != l {
		t.Error("a held lock must survive the sweep")
	}
}

func TestSweepKeepsLocksForLiveSessions(t *testing.T) {
	store := NewStore(time.Minute)

	l := store.Lock("u1")
	store.Create("u1", lockTestState{})

	store.Sweep()

	if got := store.Lock("u1"); got != l {
		t.Error("a live session's lock must not be pruned")
	}
}
