package domain

import (
	"fmt"
	"time"
)

// ChallengeType selects how a session generates and scores its questions.
type ChallengeType string

const (
	ChallengeQuickThink    ChallengeType = "quick_think"
	ChallengeDeepDive      ChallengeType = "deep_dive"
	ChallengeTopicRace     ChallengeType = "topic_race"
	ChallengeRiddleBattle  ChallengeType = "riddle_battle"
	ChallengeCreativeClash ChallengeType = "creative_clash"
)

// ParseChallengeType validates a wire value.
func ParseChallengeType(raw string) (ChallengeType, error) {
	switch ct := ChallengeType(raw); ct {
	case ChallengeQuickThink, ChallengeDeepDive, ChallengeTopicRace, ChallengeRiddleBattle, ChallengeCreativeClash:
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChallengeType, raw)
}

// IsCreative reports whether answers are open-ended and graded later.
func (c ChallengeType) IsCreative() bool {
	return c == ChallengeCreativeClash
}

// Status is the session lifecycle. Transitions only move forward.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Identity is the caller profile resolved by the surrounding system.
type Identity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	AgeGroup string `json:"age_group"`
}

// Participant is one player inside a session.
type Participant struct {
	Identity
	Score     int
	Answers   []AnswerRecord
	Ready     bool
	Connected bool
	JoinedAt  time.Time
}

// Question is one drawn item. Creative prompts have no Answer and no TimeLimit.
type Question struct {
	Prompt    string `json:"q" yaml:"q"`
	Answer    string `json:"a,omitempty" yaml:"a,omitempty"`
	Points    int    `json:"points" yaml:"points"`
	TimeLimit int    `json:"time,omitempty" yaml:"time,omitempty"` // seconds
	Creative  bool   `json:"creative,omitempty" yaml:"creative,omitempty"`
}

// AnswerRecord is appended once per participant per round.
type AnswerRecord struct {
	ParticipantID string  `json:"player_id"`
	Round         int     `json:"round"`
	Answer        string  `json:"answer"`
	Correct       bool    `json:"correct"`
	Elapsed       float64 `json:"time"`
	Points        int     `json:"points"`
	NeedsScoring  bool    `json:"needs_scoring,omitempty"`
}

// PlayerCard is the public roster view of a participant.
type PlayerCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Standing is one row of the per-round scoreboard.
type Standing struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RankedStanding is one row of the final scoreboard.
type RankedStanding struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Score  int    `json:"score"`
}

// RoomSnapshot is a read-only copy of a session handed to the boundary.
type RoomSnapshot struct {
	ID            string         `json:"id"`
	Host          string         `json:"host"`
	ChallengeType ChallengeType  `json:"challenge_type"`
	Topic         string         `json:"topic"`
	MaxPlayers    int            `json:"max_players"`
	Status        Status         `json:"status"`
	CurrentRound  int            `json:"current_round"`
	TotalRounds   int            `json:"total_rounds"`
	Players       []PlayerCard   `json:"players"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Settings      map[string]any `json:"settings,omitempty"`
}

// HasPlayer reports whether id is on the snapshot roster.
func (r RoomSnapshot) HasPlayer(id string) bool {
	for _, p := range r.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}
