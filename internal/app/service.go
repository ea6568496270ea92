package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"challenge-arena/internal/domain"
	"challenge-arena/internal/questionbank"
	"github.com/google/uuid"
)

// SessionRepository abstracts where live rooms are kept (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Add(session *Session) error
	Get(roomID string) (*Session, bool)
	Delete(roomID string)
	Range(fn func(*Session) bool)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, name string) (questionbank.Bank, error)
}

// ServiceSettings are the room-level limits applied at creation time.
type ServiceSettings struct {
	BankName   string
	MaxPlayers int
	// DailyKey names the creation setting that switches a room to the
	// date-seeded question draw.
	DailyKey string
}

const roomIDAttempts = 3

// ChallengeService contains the room use cases exposed to the transports.
type ChallengeService struct {
	sessions     SessionRepository
	banks        BankRepository
	registry     *Registry
	orchestrator *Orchestrator
	settings     ServiceSettings
	now          func() time.Time
	newID        func() string
}

func NewChallengeService(sessions SessionRepository, banks BankRepository, registry *Registry, orchestrator *Orchestrator, settings ServiceSettings) *ChallengeService {
	if settings.DailyKey == "" {
		settings.DailyKey = "daily"
	}
	return &ChallengeService{
		sessions:     sessions,
		banks:        banks,
		registry:     registry,
		orchestrator: orchestrator,
		settings:     settings,
		now:          time.Now,
		newID:        shortID,
	}
}

// shortID returns the first 8 hex characters of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NormalizeRoomID makes room ids and share codes interchangeable.
func NormalizeRoomID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// CreateRequest describes a new room.
type CreateRequest struct {
	Host          domain.Identity
	ChallengeType domain.ChallengeType
	Topic         string
	MaxPlayers    int
	Settings      map[string]any
}

// CreateSession opens a waiting room with the caller as ready host.
func (c *ChallengeService) CreateSession(ctx context.Context, req CreateRequest) (domain.RoomSnapshot, error) {
	if _, err := domain.ParseChallengeType(string(req.ChallengeType)); err != nil {
		return domain.RoomSnapshot{}, err
	}
	if strings.TrimSpace(req.Host.ID) == "" {
		return domain.RoomSnapshot{}, domain.ErrParticipantNotFound
	}
	if c.busyElsewhere(req.Host.ID, "") {
		return domain.RoomSnapshot{}, domain.ErrAlreadyInRoom
	}
	// Fail fast on a missing bank rather than when the last player readies up.
	if _, err := c.banks.GetBank(ctx, c.settings.BankName); err != nil {
		return domain.RoomSnapshot{}, err
	}

	params := SessionParams{
		Host:          req.Host,
		ChallengeType: req.ChallengeType,
		Topic:         strings.TrimSpace(req.Topic),
		MaxPlayers:    c.clampPlayers(req.MaxPlayers),
		Settings:      req.Settings,
	}
	if daily, _ := req.Settings[c.settings.DailyKey].(bool); daily {
		params.Seed = questionbank.DailySeed(c.now())
	}

	var session *Session
	for attempt := 0; attempt < roomIDAttempts; attempt++ {
		params.ID = NormalizeRoomID(c.newID())
		session = NewSessionWithClock(params, c.now)
		err := c.sessions.Add(session)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrSessionExists) {
			return domain.RoomSnapshot{}, err
		}
		session = nil
	}
	if session == nil {
		return domain.RoomSnapshot{}, fmt.Errorf("allocate room id: %w", domain.ErrSessionExists)
	}

	c.registry.Assign(req.Host.ID, session.ID())
	log.Printf("room %s created by %s (%s)", session.ID(), req.Host.ID, req.ChallengeType)
	return session.Snapshot(), nil
}

func (c *ChallengeService) clampPlayers(requested int) int {
	limit := c.settings.MaxPlayers
	if limit <= 0 {
		limit = 4
	}
	switch {
	case requested <= 0 || requested > limit:
		return limit
	case requested < c.orchestrator.rules.MinPlayers:
		return c.orchestrator.rules.MinPlayers
	}
	return requested
}

// JoinSession adds who to a waiting room.
func (c *ChallengeService) JoinSession(_ context.Context, roomID string, who domain.Identity) (domain.RoomSnapshot, error) {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrSessionNotFound
	}
	if c.busyElsewhere(who.ID, session.ID()) {
		return domain.RoomSnapshot{}, domain.ErrAlreadyInRoom
	}
	return c.orchestrator.Join(session, who)
}

// busyElsewhere reports whether participantID is still on the roster of an
// unfinished room other than roomID.
func (c *ChallengeService) busyElsewhere(participantID, roomID string) bool {
	current, ok := c.registry.RoomOf(participantID)
	if !ok || current == roomID {
		return false
	}
	other, ok := c.sessions.Get(current)
	if !ok || other.Status() == domain.StatusCompleted {
		return false
	}
	_, member := other.Participant(participantID)
	return member
}

// LeaveSession removes a participant from a waiting room and drops the room
// once empty. In a started room it counts as a disconnect: the live
// connection is closed and the participant is free to enter another room.
func (c *ChallengeService) LeaveSession(ctx context.Context, roomID, participantID string) error {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.ErrSessionNotFound
	}

	if session.Status() != domain.StatusWaiting {
		if _, ok := session.Participant(participantID); !ok {
			return domain.ErrParticipantNotFound
		}
		c.depart(session, participantID)
		return nil
	}

	bank, err := c.banks.GetBank(ctx, c.settings.BankName)
	if err != nil {
		return err
	}
	empty, err := c.orchestrator.Leave(session, participantID, bank)
	if errors.Is(err, domain.ErrSessionInProgress) {
		// Started between the status check and the lock.
		c.depart(session, participantID)
		return nil
	}
	if err != nil {
		return err
	}
	if empty {
		c.drop(session)
	}
	return nil
}

func (c *ChallengeService) depart(session *Session, participantID string) {
	c.registry.Evict(participantID)
	if current, ok := c.registry.RoomOf(participantID); ok && current == session.ID() {
		c.registry.Release(participantID)
	}
	session.setConnected(participantID, false)
	c.orchestrator.Disconnected(session, participantID)
}

// Connect binds a live channel to a roster member.
func (c *ChallengeService) Connect(roomID, participantID string, ch Channel) error {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.ErrSessionNotFound
	}
	if _, ok := session.Participant(participantID); !ok {
		return domain.ErrParticipantNotFound
	}
	if c.busyElsewhere(participantID, session.ID()) {
		return domain.ErrAlreadyInRoom
	}
	if current, ok := c.registry.RoomOf(participantID); !ok || current != session.ID() {
		c.registry.Assign(participantID, session.ID())
	}
	c.registry.Register(participantID, ch)
	return nil
}

// Disconnect detaches ch and tells the room, unless a newer connection
// has already replaced it.
func (c *ChallengeService) Disconnect(participantID string, ch Channel) {
	roomID, ok := c.registry.Detach(participantID, ch)
	if !ok || roomID == "" {
		return
	}
	session, ok := c.sessions.Get(roomID)
	if !ok {
		return
	}
	c.orchestrator.Disconnected(session, participantID)
}

// Ready marks the participant ready, starting the game once everyone is.
func (c *ChallengeService) Ready(ctx context.Context, roomID, participantID string) error {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.ErrSessionNotFound
	}
	bank, err := c.banks.GetBank(ctx, c.settings.BankName)
	if err != nil {
		return err
	}
	return c.orchestrator.MarkReady(session, participantID, bank)
}

// SubmitAnswer records an answer for the open round.
func (c *ChallengeService) SubmitAnswer(roomID, participantID, answer string, elapsed float64) (domain.AnswerResult, error) {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	return c.orchestrator.SubmitAnswer(session, participantID, answer, elapsed)
}

// Chat relays a message to the room.
func (c *ChallengeService) Chat(roomID, participantID, message string) error {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.ErrSessionNotFound
	}
	return c.orchestrator.Chat(session, participantID, message)
}

// Snapshot returns the public view of a room.
func (c *ChallengeService) Snapshot(roomID string) (domain.RoomSnapshot, error) {
	session, ok := c.sessions.Get(NormalizeRoomID(roomID))
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Reap drops completed rooms older than retention and waiting rooms idle
// for longer than idle with nobody connected. It returns how many were dropped.
func (c *ChallengeService) Reap(retention, idle time.Duration) int {
	now := c.now()
	var stale []*Session
	c.sessions.Range(func(s *Session) bool {
		if s.reapable(now, retention, idle, c.registry.Reachable) {
			stale = append(stale, s)
		}
		return true
	})
	for _, s := range stale {
		c.drop(s)
	}
	return len(stale)
}

func (c *ChallengeService) drop(s *Session) {
	s.shutdown()
	c.sessions.Delete(s.ID())
	c.registry.ReleaseRoom(s.ID())
	log.Printf("room %s removed", s.ID())
}
