package redis

import (
	"context"
	"sync"
	"time"

	"challenge-arena/internal/app"
	"challenge-arena/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in the local map so their timers and broadcasts stay in
// process; Redis holds a liveness key per room and reserves room ids
// across instances sharing the same Redis.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := session.ID()
	if _, ok := s.sessions[id]; ok {
		return domain.ErrSessionExists
	}
	reserved, err := s.client.SetNX(context.Background(), s.key(id), "1", s.ttl).Result()
	if err != nil {
		// best-effort: a Redis outage must not stop local play
		reserved = true
	}
	if !reserved {
		return domain.ErrSessionExists
	}
	s.sessions[id] = session
	return nil
}

func (s *SessionStore) Get(roomID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[roomID]
	return session, ok
}

func (s *SessionStore) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[roomID]; !ok {
		return
	}
	delete(s.sessions, roomID)
	_ = s.client.Del(context.Background(), s.key(roomID)).Err()
}

// Range visits a copy of the local set and refreshes each visited room's
// liveness key.
func (s *SessionStore) Range(fn func(*app.Session) bool) {
	s.mu.RLock()
	sessions := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	ctx := context.Background()
	pipe := s.client.Pipeline()
	for _, session := range sessions {
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key(session.ID()), s.ttl)
		}
		if !fn(session) {
			break
		}
	}
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) key(roomID string) string {
	return "arena:room:" + roomID
}
