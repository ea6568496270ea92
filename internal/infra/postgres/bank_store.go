package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"challenge-arena/internal/questionbank"
	"github.com/uptrace/bun"
)

// QuestionBankRow is one named bank document.
type QuestionBankRow struct {
	bun.BaseModel `bun:"table:question_banks"`

	Name      string          `bun:"name,pk"`
	Data      json.RawMessage `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SaveBank upserts bank under name.
func SaveBank(ctx context.Context, db bun.IDB, name string, bank questionbank.Bank) error {
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	row := &QuestionBankRow{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err = db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save bank %s: %w", name, err)
	}
	return nil
}
