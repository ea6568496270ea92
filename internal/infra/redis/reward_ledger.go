package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RewardLedger records star deposits in Redis:
//
//	HINCRBY arena:stars {participantID} {amount}
//	RPUSH   arena:stars:log:{participantID} {json entry}
type RewardLedger struct {
	client *redis.Client
	now    func() time.Time
}

type rewardEntry struct {
	Amount int       `json:"amount"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func NewRewardLedger(client *redis.Client) *RewardLedger {
	return &RewardLedger{client: client, now: time.Now}
}

func (l *RewardLedger) Deposit(ctx context.Context, participantID string, amount int, reason string) error {
	entry, err := json.Marshal(rewardEntry{Amount: amount, Reason: reason, At: l.now().UTC()})
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.HIncrBy(ctx, totalsKey, participantID, int64(amount))
	pipe.RPush(ctx, logKey(participantID), entry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deposit stars for %s: %w", participantID, err)
	}
	return nil
}

// Balance returns the stars recorded for participantID.
func (l *RewardLedger) Balance(ctx context.Context, participantID string) (int, error) {
	raw, err := l.client.HGet(ctx, totalsKey, participantID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

const totalsKey = "arena:stars"

func logKey(participantID string) string {
	return "arena:stars:log:" + participantID
}
