package memory

import (
	"context"
	"sync"
)

// RewardEntry is one deposit held by RewardLedger.
type RewardEntry struct {
	ParticipantID string
	Amount        int
	Reason        string
}

// RewardLedger keeps star deposits in process; useful for demos and tests.
type RewardLedger struct {
	mu      sync.Mutex
	entries []RewardEntry
	totals  map[string]int
}

func NewRewardLedger() *RewardLedger {
	return &RewardLedger{totals: make(map[string]int)}
}

func (l *RewardLedger) Deposit(_ context.Context, participantID string, amount int, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, RewardEntry{ParticipantID: participantID, Amount: amount, Reason: reason})
	l.totals[participantID] += amount
	return nil
}

// Balance returns the stars deposited for participantID.
func (l *RewardLedger) Balance(participantID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals[participantID]
}

// Entries returns a copy of every deposit in arrival order.
func (l *RewardLedger) Entries() []RewardEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RewardEntry(nil), l.entries...)
}
