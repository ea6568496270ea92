// Package questionbank holds the read-only catalogue of questions, riddles
// and creative prompts that sessions draw from.
package questionbank

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"challenge-arena/internal/domain"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

const (
	// FallbackTopic is used when a session asks for a topic the bank lacks.
	FallbackTopic = "General"

	DefaultTimeLimit = 30
	DefaultPoints    = 10

	factualRounds  = 5
	riddleRounds   = 5
	creativeRounds = 3
)

// Bank is keyed by topic label. Values must not be mutated after New.
type Bank struct {
	Topics   map[string][]domain.Question `json:"topics" yaml:"topics"`
	Riddles  []domain.Question            `json:"riddles" yaml:"riddles"`
	Creative []string                     `json:"creative" yaml:"creative"`

	keys map[string]string
}

// New builds a bank, filling default points and time limits.
func New(topics map[string][]domain.Question, riddles []domain.Question, creative []string) Bank {
	b := Bank{
		Topics:   make(map[string][]domain.Question, len(topics)),
		Riddles:  withDefaults(riddles),
		Creative: append([]string(nil), creative...),
		keys:     make(map[string]string, len(topics)),
	}
	for label, qs := range topics {
		b.Topics[label] = withDefaults(qs)
		b.keys[Key(label)] = label
	}
	return b
}

// Key normalises a topic label so "Space", "space " and "SPACE" match.
func Key(topic string) string {
	return slug.Make(strings.TrimSpace(topic))
}

// TopicQuestions resolves a topic case-insensitively.
func (b Bank) TopicQuestions(topic string) ([]domain.Question, bool) {
	label, ok := b.keys[Key(topic)]
	if !ok {
		return nil, false
	}
	return b.Topics[label], true
}

// TopicNames lists the catalogue's topics.
func (b Bank) TopicNames() []string {
	names := make([]string, 0, len(b.Topics))
	for label := range b.Topics {
		names = append(names, label)
	}
	return names
}

// Draw samples the question sequence for one session without replacement.
// rng is owned by the caller; sessions never share one.
func (b Bank) Draw(ct domain.ChallengeType, topic string, rng *rand.Rand) []domain.Question {
	switch ct {
	case domain.ChallengeRiddleBattle:
		return sample(b.Riddles, riddleRounds, rng)
	case domain.ChallengeCreativeClash:
		prompts := make([]domain.Question, 0, len(b.Creative))
		for _, p := range b.Creative {
			prompts = append(prompts, domain.Question{Prompt: p, Points: DefaultPoints, Creative: true})
		}
		return sample(prompts, creativeRounds, rng)
	}
	qs, ok := b.TopicQuestions(topic)
	if !ok {
		qs, _ = b.TopicQuestions(FallbackTopic)
	}
	return sample(qs, factualRounds, rng)
}

func sample(pool []domain.Question, n int, rng *rand.Rand) []domain.Question {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]domain.Question, 0, n)
	for _, idx := range rng.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out
}

func withDefaults(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		if q.Points == 0 {
			q.Points = DefaultPoints
		}
		if q.TimeLimit == 0 && !q.Creative {
			q.TimeLimit = DefaultTimeLimit
		}
		out[i] = q
	}
	return out
}

// DailySeed derives a deterministic seed from a calendar date.
func DailySeed(day time.Time) int64 {
	y, m, d := day.Date()
	return int64(y*10000 + int(m)*100 + d)
}

// Decode parses a JSON document into a bank.
func Decode(raw []byte) (Bank, error) {
	var b Bank
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bank{}, fmt.Errorf("decode bank: %w", err)
	}
	return New(b.Topics, b.Riddles, b.Creative), nil
}

// LoadFile reads a bank from a YAML or JSON file.
func LoadFile(path string) (Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bank{}, err
	}
	if ext := filepath.Ext(path); ext == ".json" {
		return Decode(data)
	}
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bank{}, fmt.Errorf("decode bank %s: %w", path, err)
	}
	return New(b.Topics, b.Riddles, b.Creative), nil
}
