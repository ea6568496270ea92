package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// RewardDeposit is one row of the star ledger.
type RewardDeposit struct {
	bun.BaseModel `bun:"table:reward_deposits"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ParticipantID string    `bun:"participant_id,notnull"`
	Amount        int       `bun:"amount,notnull"`
	Reason        string    `bun:"reason,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// RewardLedger appends deposits to reward_deposits.
type RewardLedger struct {
	db *bun.DB
}

func NewRewardLedger(db *bun.DB) *RewardLedger {
	return &RewardLedger{db: db}
}

func (l *RewardLedger) Deposit(ctx context.Context, participantID string, amount int, reason string) error {
	row := &RewardDeposit{ParticipantID: participantID, Amount: amount, Reason: reason}
	if _, err := l.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("deposit stars for %s: %w", participantID, err)
	}
	return nil
}

// Balance sums the stars recorded for participantID.
func (l *RewardLedger) Balance(ctx context.Context, participantID string) (int, error) {
	var total int
	err := l.db.NewSelect().
		Model((*RewardDeposit)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("participant_id = ?", participantID).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("balance for %s: %w", participantID, err)
	}
	return total, nil
}
