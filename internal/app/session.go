package app

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"challenge-arena/internal/domain"
)

type phase int

const (
	phaseLobby phase = iota
	phaseRoundActive
	phaseRoundSettling
	phaseGameOver
)

// Session is the in-memory state of one room. Every field below mu is
// guarded by it; only the Orchestrator mutates game state.
type Session struct {
	id         string
	challenge  domain.ChallengeType
	topic      string
	maxPlayers int
	createdAt  time.Time
	settings   map[string]any
	now        func() time.Time

	mu            sync.Mutex
	host          string
	status        domain.Status
	phase         phase
	participants  map[string]*domain.Participant
	order         []string
	questions     []domain.Question
	current       int
	roundAnswers  map[string]domain.AnswerRecord
	roundOpenedAt time.Time
	timer         Timer
	startedAt     time.Time
	endedAt       time.Time
	lastActive    time.Time
	rng           *rand.Rand
}

// SessionParams describes a room at creation time.
type SessionParams struct {
	ID            string
	Host          domain.Identity
	ChallengeType domain.ChallengeType
	Topic         string
	MaxPlayers    int
	Settings      map[string]any
	Seed          int64
}

// NewSession creates a waiting room with the host as its first, ready member.
func NewSession(p SessionParams) *Session {
	return NewSessionWithClock(p, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(p SessionParams, now func() time.Time) *Session {
	created := now()
	seed := p.Seed
	if seed == 0 {
		seed = created.UnixNano()
	}
	s := &Session{
		id:           p.ID,
		challenge:    p.ChallengeType,
		topic:        p.Topic,
		maxPlayers:   p.MaxPlayers,
		createdAt:    created,
		settings:     p.Settings,
		now:          now,
		host:         p.Host.ID,
		status:       domain.StatusWaiting,
		phase:        phaseLobby,
		participants: make(map[string]*domain.Participant),
		lastActive:   created,
		rng:          rand.New(rand.NewSource(seed)),
	}
	s.addLocked(p.Host, true)
	return s
}

// ID returns the room id.
func (s *Session) ID() string {
	return s.id
}

// Status returns the lifecycle status.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a read-only copy of the room.
func (s *Session) Snapshot() domain.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Participant returns a copy of one roster member.
func (s *Session) Participant(id string) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	cp := *p
	cp.Answers = append([]domain.AnswerRecord(nil), p.Answers...)
	return cp, true
}

// IsEmpty reports whether the roster has no members.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) == 0
}

func (s *Session) addLocked(who domain.Identity, ready bool) *domain.Participant {
	p := &domain.Participant{
		Identity:  who,
		Ready:     ready,
		Connected: true,
		JoinedAt:  s.now(),
	}
	s.participants[who.ID] = p
	s.order = append(s.order, who.ID)
	return p
}

func (s *Session) removeLocked(id string) {
	delete(s.participants, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.host == id && len(s.order) > 0 {
		s.host = s.order[0]
	}
}

func (s *Session) setConnected(id string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.participants[id]; ok {
		p.Connected = connected
		s.lastActive = s.now()
	}
}

func (s *Session) allReadyLocked() bool {
	for _, p := range s.participants {
		if !p.Ready {
			return false
		}
	}
	return true
}

// allConnectedAnsweredLocked is false when nobody is connected so an
// abandoned round waits for its deadline.
func (s *Session) allConnectedAnsweredLocked() bool {
	connected := 0
	for id, p := range s.participants {
		if !p.Connected {
			continue
		}
		connected++
		if _, ok := s.roundAnswers[id]; !ok {
			return false
		}
	}
	return connected > 0
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// rankedLocked returns the roster sorted by score, ties kept in join order.
func (s *Session) rankedLocked() []*domain.Participant {
	ranked := make([]*domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.participants[id]; ok {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func (s *Session) standingsLocked() []domain.Standing {
	ranked := s.rankedLocked()
	out := make([]domain.Standing, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, domain.Standing{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return out
}

func (s *Session) cardsLocked() []domain.PlayerCard {
	cards := make([]domain.PlayerCard, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		cards = append(cards, domain.PlayerCard{ID: p.ID, Name: p.Name, Avatar: p.Avatar})
	}
	return cards
}

func (s *Session) snapshotLocked() domain.RoomSnapshot {
	snap := domain.RoomSnapshot{
		ID:            s.id,
		Host:          s.host,
		ChallengeType: s.challenge,
		Topic:         s.topic,
		MaxPlayers:    s.maxPlayers,
		Status:        s.status,
		CurrentRound:  s.current,
		TotalRounds:   len(s.questions),
		Players:       s.cardsLocked(),
		CreatedAt:     s.createdAt,
		Settings:      s.settings,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		snap.EndedAt = &ended
	}
	return snap
}

// reapable reports whether the room can be dropped at now.
func (s *Session) reapable(now time.Time, retention, idle time.Duration, reachable func(string) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusCompleted:
		return retention >= 0 && now.Sub(s.endedAt) >= retention
	case domain.StatusWaiting:
		if idle <= 0 || now.Sub(s.lastActive) < idle {
			return false
		}
		for _, id := range s.order {
			if reachable(id) {
				return false
			}
		}
		return true
	}
	return false
}

func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}
