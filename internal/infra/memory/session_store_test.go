package memory

import (
	"errors"
	"testing"

	"challenge-arena/internal/app"
	"challenge-arena/internal/domain"
)

func newSession(id string) *app.Session {
	return app.NewSession(app.SessionParams{
		ID:            id,
		Host:          domain.Identity{ID: "host-" + id, Name: "Host"},
		ChallengeType: domain.ChallengeQuickThink,
		MaxPlayers:    4,
	})
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	if err := store.Add(newSession("room-1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected session present")
	}
	if err := store.Add(newSession("room-1")); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected duplicate id rejected, got %v", err)
	}

	store.Delete("room-1")
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreRangeAllowsDelete(t *testing.T) {
	store := NewSessionStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Add(newSession(id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	store.Range(func(s *app.Session) bool {
		store.Delete(s.ID())
		return true
	})
	if store.Len() != 0 {
		t.Fatalf("expected all rooms deleted, %d left", store.Len())
	}
}
