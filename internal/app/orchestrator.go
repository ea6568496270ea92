package app

import (
	"context"
	"log"
	"strings"
	"time"

	"challenge-arena/internal/domain"
	"challenge-arena/internal/questionbank"
	"golang.org/x/sync/errgroup"
)

const (
	reasonWinner      = "multiplayer:winner"
	reasonParticipant = "multiplayer:participant"
	reasonCreative    = "creative_clash:graded"

	payoutTimeout     = 30 * time.Second
	payoutConcurrency = 4
)

// RewardDepositor applies stars to the external gamification ledger.
type RewardDepositor interface {
	Deposit(ctx context.Context, participantID string, amount int, reason string) error
}

// CreativeGrader scores an open-ended answer after the game has ended.
type CreativeGrader interface {
	Score(ctx context.Context, prompt, answer string) (int, error)
}

// Rules are the fixed game parameters shared by every session.
type Rules struct {
	MinPlayers        int
	SettleDelay       time.Duration
	DefaultTimeLimit  int // seconds
	CreativeTimeLimit int // seconds
	CreativePoints    int
	Rewards           domain.RewardSchedule
}

// DefaultRules mirrors the classic game settings.
func DefaultRules() Rules {
	return Rules{
		MinPlayers:        2,
		SettleDelay:       5 * time.Second,
		DefaultTimeLimit:  questionbank.DefaultTimeLimit,
		CreativeTimeLimit: 60,
		CreativePoints:    10,
		Rewards:           domain.RewardSchedule{WinnerStars: 100, ParticipantStars: 25},
	}
}

// Orchestrator drives sessions through their rounds. It is the single
// writer of session game state; every transition runs under the session lock.
type Orchestrator struct {
	registry  *Registry
	scheduler Scheduler
	rewards   RewardDepositor
	grader    CreativeGrader
	rules     Rules
	verbose   bool
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithScheduler(s Scheduler) OrchestratorOption {
	return func(o *Orchestrator) { o.scheduler = s }
}

func WithRewards(r RewardDepositor) OrchestratorOption {
	return func(o *Orchestrator) { o.rewards = r }
}

func WithGrader(g CreativeGrader) OrchestratorOption {
	return func(o *Orchestrator) { o.grader = g }
}

func WithVerbose(v bool) OrchestratorOption {
	return func(o *Orchestrator) { o.verbose = v }
}

func NewOrchestrator(registry *Registry, rules Rules, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		scheduler: SystemScheduler,
		rules:     rules,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.verbose {
		log.Printf(format, args...)
	}
}

// Join adds who to a waiting room and announces it to the other members.
// Joining twice returns the current roster unchanged.
func (o *Orchestrator) Join(s *Session, who domain.Identity) (domain.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[who.ID]; ok {
		return s.snapshotLocked(), nil
	}
	if s.status != domain.StatusWaiting {
		return domain.RoomSnapshot{}, domain.ErrSessionInProgress
	}
	if len(s.order) >= s.maxPlayers {
		return domain.RoomSnapshot{}, domain.ErrSessionFull
	}

	s.addLocked(who, false)
	s.lastActive = s.now()
	o.registry.Assign(who.ID, s.id)
	o.registry.Broadcast(s.id, domain.PlayerJoined{
		Type:        domain.EventPlayerJoined,
		Player:      domain.Standing{ID: who.ID, Name: who.Name},
		PlayerCount: len(s.order),
	}, who.ID)
	return s.snapshotLocked(), nil
}

// Leave removes a participant from a waiting room. It reports whether the
// room is now empty. Rooms that have started keep their roster.
func (o *Orchestrator) Leave(s *Session, participantID string, bank questionbank.Bank) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participantID]; !ok {
		return len(s.order) == 0, domain.ErrParticipantNotFound
	}
	if s.status != domain.StatusWaiting {
		return false, domain.ErrSessionInProgress
	}
	s.removeLocked(participantID)
	s.lastActive = s.now()
	o.registry.Release(participantID)
	o.registry.Broadcast(s.id, domain.PlayerDisconnected{
		Type:     domain.EventPlayerDisconnected,
		PlayerID: participantID,
	})
	o.maybeStartLocked(s, bank)
	return len(s.order) == 0, nil
}

// MarkReady flags a participant ready and starts the game once everyone is.
func (o *Orchestrator) MarkReady(s *Session, participantID string, bank questionbank.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if s.status != domain.StatusWaiting {
		return nil
	}
	p.Ready = true
	s.lastActive = s.now()
	o.maybeStartLocked(s, bank)
	return nil
}

func (o *Orchestrator) maybeStartLocked(s *Session, bank questionbank.Bank) {
	if s.status != domain.StatusWaiting || len(s.order) < o.rules.MinPlayers || !s.allReadyLocked() {
		return
	}
	o.startLocked(s, bank)
}

func (o *Orchestrator) startLocked(s *Session, bank questionbank.Bank) {
	s.status = domain.StatusInProgress
	s.startedAt = s.now()
	s.questions = bank.Draw(s.challenge, s.topic, s.rng)
	s.current = 0

	log.Printf("session %s started: %s, %d rounds, %d players", s.id, s.challenge, len(s.questions), len(s.order))
	o.registry.Broadcast(s.id, domain.GameStarted{
		Type:           domain.EventGameStarted,
		ChallengeType:  s.challenge,
		TotalQuestions: len(s.questions),
		Players:        s.cardsLocked(),
	})
	o.openRoundLocked(s)
}

func (o *Orchestrator) timeLimit(q domain.Question) int {
	if q.Creative {
		return o.rules.CreativeTimeLimit
	}
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return o.rules.DefaultTimeLimit
}

func (o *Orchestrator) openRoundLocked(s *Session) {
	if s.current >= len(s.questions) {
		o.finishLocked(s)
		return
	}

	q := s.questions[s.current]
	limit := o.timeLimit(q)
	s.phase = phaseRoundActive
	s.roundAnswers = make(map[string]domain.AnswerRecord, len(s.order))
	s.roundOpenedAt = s.now()

	o.registry.Broadcast(s.id, domain.NewQuestion{
		Type:        domain.EventNewQuestion,
		Round:       s.current + 1,
		TotalRounds: len(s.questions),
		Question:    q.Prompt,
		TimeLimit:   limit,
		Points:      q.Points,
		IsCreative:  q.Creative,
	})
	o.logf("session %s round %d open for %ds", s.id, s.current+1, limit)

	round := s.current
	s.stopTimerLocked()
	s.timer = o.scheduler.AfterFunc(time.Duration(limit)*time.Second, func() {
		o.expire(s, round)
	})
}

// SubmitAnswer records one participant's answer for the open round.
// Duplicates return ErrAlreadyAnswered and leave the first record intact.
// A non-positive elapsed is replaced by the server-measured time.
func (o *Orchestrator) SubmitAnswer(s *Session, participantID, answer string, elapsed float64) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress || s.phase != phaseRoundActive {
		return domain.AnswerResult{}, domain.ErrRoundClosed
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	if _, dup := s.roundAnswers[participantID]; dup {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	if elapsed <= 0 {
		elapsed = s.now().Sub(s.roundOpenedAt).Seconds()
	}
	q := s.questions[s.current]
	record := domain.AnswerRecord{
		ParticipantID: participantID,
		Round:         s.current,
		Answer:        answer,
		Elapsed:       elapsed,
	}
	if q.Creative {
		if strings.TrimSpace(answer) != "" {
			record.Points = o.rules.CreativePoints
			record.NeedsScoring = true
		}
	} else if isCorrect(answer, q.Answer) {
		record.Correct = true
		record.Points = timedScore(q.Points, o.timeLimit(q), elapsed)
	}

	p.Score += record.Points
	p.Answers = append(p.Answers, record)
	s.roundAnswers[participantID] = record
	s.lastActive = s.now()

	result := domain.AnswerResult{
		Type:         domain.EventAnswerResult,
		Correct:      record.Correct,
		PointsEarned: record.Points,
		TotalScore:   p.Score,
	}
	o.registry.Unicast(participantID, result)

	if s.allConnectedAnsweredLocked() {
		o.settleLocked(s)
	}
	return result, nil
}

// Disconnected announces a lost participant and settles the open round if
// everyone still connected has already answered.
func (o *Orchestrator) Disconnected(s *Session, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participantID]; !ok {
		return
	}
	o.registry.Broadcast(s.id, domain.PlayerDisconnected{
		Type:     domain.EventPlayerDisconnected,
		PlayerID: participantID,
	}, participantID)

	if s.status == domain.StatusInProgress && s.phase == phaseRoundActive && s.allConnectedAnsweredLocked() {
		o.settleLocked(s)
	}
}

// Chat relays a message from a member to the room.
func (o *Orchestrator) Chat(s *Session, participantID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participantID]; !ok {
		return domain.ErrParticipantNotFound
	}
	o.registry.Broadcast(s.id, domain.Chat{
		Type:     domain.EventChat,
		PlayerID: participantID,
		Message:  message,
	})
	return nil
}

// expire fires when a round deadline lapses. It is a no-op unless round is
// still the open one.
func (o *Orchestrator) expire(s *Session, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress || s.phase != phaseRoundActive || s.current != round {
		return
	}
	o.logf("session %s round %d deadline reached", s.id, round+1)
	o.settleLocked(s)
}

func (o *Orchestrator) settleLocked(s *Session) {
	s.stopTimerLocked()
	if s.current >= len(s.questions) {
		o.finishLocked(s)
		return
	}
	s.phase = phaseRoundSettling

	q := s.questions[s.current]
	var correctAnswer *string
	if !q.Creative {
		answer := q.Answer
		correctAnswer = &answer
	}

	results := make([]domain.RoundResult, 0, len(s.order))
	for _, id := range s.order {
		res := domain.RoundResult{PlayerID: id, Answer: domain.NoAnswer}
		if rec, ok := s.roundAnswers[id]; ok {
			res.Answer = rec.Answer
			res.Correct = rec.Correct
			res.Points = rec.Points
		}
		results = append(results, res)
	}

	o.registry.Broadcast(s.id, domain.RoundEnded{
		Type:          domain.EventRoundEnded,
		Round:         s.current + 1,
		CorrectAnswer: correctAnswer,
		RoundResults:  results,
		Standings:     s.standingsLocked(),
	})

	s.current++
	next := s.current
	s.timer = o.scheduler.AfterFunc(o.rules.SettleDelay, func() {
		o.advance(s, next)
	})
}

// advance opens round next after the settle delay, unless the session has
// moved on in the meantime.
func (o *Orchestrator) advance(s *Session, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress || s.phase != phaseRoundSettling || s.current != next {
		return
	}
	o.openRoundLocked(s)
}

func (o *Orchestrator) finishLocked(s *Session) {
	s.stopTimerLocked()
	s.status = domain.StatusCompleted
	s.phase = phaseGameOver
	s.endedAt = s.now()
	s.lastActive = s.endedAt

	ranked := s.rankedLocked()
	final := make([]domain.RankedStanding, 0, len(ranked))
	for i, p := range ranked {
		final = append(final, domain.RankedStanding{
			Rank:   i + 1,
			ID:     p.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Score:  p.Score,
		})
	}
	var winner *domain.Standing
	if len(ranked) > 0 {
		winner = &domain.Standing{ID: ranked[0].ID, Name: ranked[0].Name, Score: ranked[0].Score}
	}

	o.registry.Broadcast(s.id, domain.GameEnded{
		Type:           domain.EventGameEnded,
		Winner:         winner,
		FinalStandings: final,
		Rewards:        o.rules.Rewards,
	})
	log.Printf("session %s completed after %d rounds", s.id, len(s.questions))

	job := payout{roomID: s.id}
	for i, p := range ranked {
		amount, reason := o.rules.Rewards.ParticipantStars, reasonParticipant
		if i == 0 {
			amount, reason = o.rules.Rewards.WinnerStars, reasonWinner
		}
		job.deposits = append(job.deposits, deposit{participantID: p.ID, amount: amount, reason: reason})
		for _, rec := range p.Answers {
			if rec.NeedsScoring && rec.Round < len(s.questions) {
				job.creative = append(job.creative, creativeAnswer{record: rec, prompt: s.questions[rec.Round].Prompt})
			}
		}
	}
	go o.settlePayout(job)
}

type deposit struct {
	participantID string
	amount        int
	reason        string
}

type creativeAnswer struct {
	record domain.AnswerRecord
	prompt string
}

type payout struct {
	roomID   string
	deposits []deposit
	creative []creativeAnswer
}

// settlePayout hands rewards to the ledger and grades creative answers.
// It runs after the session is complete and never touches session state.
func (o *Orchestrator) settlePayout(job payout) {
	ctx, cancel := context.WithTimeout(context.Background(), payoutTimeout)
	defer cancel()

	if o.grader != nil && len(job.creative) > 0 {
		scores := make([]domain.CreativeScore, len(job.creative))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(payoutConcurrency)
		for i, ans := range job.creative {
			i, ans := i, ans
			g.Go(func() error {
				points, err := o.grader.Score(gctx, ans.prompt, ans.record.Answer)
				if err != nil {
					log.Printf("session %s: grade answer from %s: %v", job.roomID, ans.record.ParticipantID, err)
					return nil
				}
				scores[i] = domain.CreativeScore{PlayerID: ans.record.ParticipantID, Round: ans.record.Round + 1, Points: points}
				return nil
			})
		}
		_ = g.Wait()

		graded := scores[:0]
		for _, sc := range scores {
			if sc.PlayerID == "" {
				continue
			}
			graded = append(graded, sc)
			if sc.Points > 0 {
				job.deposits = append(job.deposits, deposit{participantID: sc.PlayerID, amount: sc.Points, reason: reasonCreative})
			}
		}
		if len(graded) > 0 {
			o.registry.Broadcast(job.roomID, domain.CreativeScores{Type: domain.EventCreativeScores, Scores: graded})
		}
	}

	if o.rewards == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(payoutConcurrency)
	for _, d := range job.deposits {
		if d.amount <= 0 {
			continue
		}
		d := d
		g.Go(func() error {
			if err := o.rewards.Deposit(gctx, d.participantID, d.amount, d.reason); err != nil {
				log.Printf("session %s: deposit %d stars to %s: %v", job.roomID, d.amount, d.participantID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
