package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"challenge-arena/internal/domain"
	"challenge-arena/internal/questionbank"
)

// manualScheduler fires timers only when the test asks it to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{s: m, delay: d, fn: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) pending() []*manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireNext runs the oldest pending timer and reports its delay.
func (m *manualScheduler) fireNext(t *testing.T) time.Duration {
	t.Helper()
	m.mu.Lock()
	var next *manualTimer
	for _, candidate := range m.timers {
		if !candidate.stopped && !candidate.fired {
			next = candidate
			break
		}
	}
	if next == nil {
		m.mu.Unlock()
		t.Fatalf("no pending timer")
	}
	next.fired = true
	m.mu.Unlock()

	next.fn()
	return next.delay
}

func (m *manualScheduler) firedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.fired {
			n++
		}
	}
	return n
}

// recorder is a Channel that keeps every event it is sent.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
	closed bool
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) Send(event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

func (r *recorder) all(eventType string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, eventType string) domain.Event {
	t.Helper()
	events := r.all(eventType)
	if len(events) == 0 {
		t.Fatalf("no %s event, got %v", eventType, r.types())
	}
	return events[len(events)-1]
}

type testStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newTestStore() *testStore {
	return &testStore{sessions: make(map[string]*Session)}
}

func (s *testStore) Add(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID()]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[session.ID()] = session
	return nil
}

func (s *testStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *testStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *testStore) Range(fn func(*Session) bool) {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	s.mu.Unlock()
	for _, session := range all {
		if !fn(session) {
			return
		}
	}
}

type staticBanks struct {
	bank questionbank.Bank
}

func (b staticBanks) GetBank(context.Context, string) (questionbank.Bank, error) {
	return b.bank, nil
}

type ledgerStub struct {
	mu       sync.Mutex
	deposits []deposit
}

func (l *ledgerStub) Deposit(_ context.Context, participantID string, amount int, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deposits = append(l.deposits, deposit{participantID: participantID, amount: amount, reason: reason})
	return nil
}

func (l *ledgerStub) snapshot() []deposit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]deposit(nil), l.deposits...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testBank() questionbank.Bank {
	return questionbank.New(
		map[string][]domain.Question{
			"General": {
				{Prompt: "What is the capital of France?", Answer: "Paris", Points: 10, TimeLimit: 15},
				{Prompt: "How many legs does a spider have?", Answer: "8", Points: 10, TimeLimit: 15},
			},
			"Solo": {
				{Prompt: "What colour is the sky?", Answer: "Blue", Points: 10, TimeLimit: 15},
			},
		},
		[]domain.Question{
			{Prompt: "What has keys but opens no locks?", Answer: "Piano", Points: 20},
			{Prompt: "What gets wetter the more it dries?", Answer: "Towel", Points: 20},
			{Prompt: "What has hands but cannot clap?", Answer: "Clock", Points: 20},
		},
		[]string{"Invent a new animal", "Describe a city on the moon"},
	)
}

// answerKey maps prompts to expected answers across the bank.
func answerKey(bank questionbank.Bank) map[string]string {
	key := make(map[string]string)
	for _, qs := range bank.Topics {
		for _, q := range qs {
			key[q.Prompt] = q.Answer
		}
	}
	for _, q := range bank.Riddles {
		key[q.Prompt] = q.Answer
	}
	return key
}

type fixture struct {
	sched    *manualScheduler
	store    *testStore
	registry *Registry
	orch     *Orchestrator
	service  *ChallengeService
	ledger   *ledgerStub
	clock    *clock
	bank     questionbank.Bank
	channels map[string]*recorder
}

func newFixture(t *testing.T, opts ...OrchestratorOption) *fixture {
	t.Helper()
	f := &fixture{
		sched:    &manualScheduler{},
		store:    newTestStore(),
		ledger:   &ledgerStub{},
		clock:    &clock{now: time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)},
		bank:     testBank(),
		channels: make(map[string]*recorder),
	}
	f.registry = NewRegistry(f.store)
	opts = append([]OrchestratorOption{WithScheduler(f.sched), WithRewards(f.ledger)}, opts...)
	f.orch = NewOrchestrator(f.registry, DefaultRules(), opts...)
	f.service = NewChallengeService(f.store, staticBanks{bank: f.bank}, f.registry, f.orch, ServiceSettings{BankName: "default", MaxPlayers: 4})
	f.service.now = f.clock.Now
	return f
}

func (f *fixture) create(t *testing.T, hostID string, ct domain.ChallengeType, topic string, maxPlayers int) *Session {
	t.Helper()
	room, err := f.service.CreateSession(context.Background(), CreateRequest{
		Host:          domain.Identity{ID: hostID, Name: hostID},
		ChallengeType: ct,
		Topic:         topic,
		MaxPlayers:    maxPlayers,
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	session, ok := f.store.Get(room.ID)
	if !ok {
		t.Fatalf("room %s not stored", room.ID)
	}
	return session
}

func (f *fixture) join(t *testing.T, s *Session, id string) {
	t.Helper()
	if _, err := f.service.JoinSession(context.Background(), s.ID(), domain.Identity{ID: id, Name: id}); err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
}

func (f *fixture) connect(t *testing.T, s *Session, id string) *recorder {
	t.Helper()
	ch := &recorder{}
	if err := f.service.Connect(s.ID(), id, ch); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
	f.channels[id] = ch
	return ch
}

func (f *fixture) ready(t *testing.T, s *Session, id string) {
	t.Helper()
	if err := f.service.Ready(context.Background(), s.ID(), id); err != nil {
		t.Fatalf("ready %s: %v", id, err)
	}
}

// startDuel creates a two-player room, connects both players and starts it.
func (f *fixture) startDuel(t *testing.T, ct domain.ChallengeType, topic string) *Session {
	t.Helper()
	s := f.create(t, "p1", ct, topic, 4)
	f.connect(t, s, "p1")
	f.join(t, s, "p2")
	f.connect(t, s, "p2")
	f.ready(t, s, "p2")
	if s.Status() != domain.StatusInProgress {
		t.Fatalf("expected game in progress, got %s", s.Status())
	}
	return s
}

func currentPrompt(t *testing.T, ch *recorder) string {
	t.Helper()
	return ch.last(t, domain.EventNewQuestion).(domain.NewQuestion).Question
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
