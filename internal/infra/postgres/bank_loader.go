package postgres

import (
	"context"
	"errors"
	"fmt"

	"challenge-arena/internal/domain"
	"challenge-arena/internal/questionbank"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, name string) (questionbank.Bank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return questionbank.Bank{}, fmt.Errorf("load bank %s: %w", name, domain.ErrBankNotFound)
	}
	if err != nil {
		return questionbank.Bank{}, fmt.Errorf("load bank: %w", err)
	}
	return questionbank.Decode(raw)
}
