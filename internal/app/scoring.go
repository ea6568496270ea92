package app

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

var (
	fold      = cases.Fold()
	bonusRate = decimal.RequireFromString("0.5")
)

// isCorrect accepts an exact case-insensitive match, or either text
// containing the other. Blank submissions are never correct.
func isCorrect(submitted, expected string) bool {
	got := fold.String(strings.TrimSpace(submitted))
	want := fold.String(strings.TrimSpace(expected))
	if got == "" || want == "" {
		return false
	}
	return got == want || strings.Contains(want, got) || strings.Contains(got, want)
}

// timedScore returns base * (1 + 0.5 * max(0, (limit-elapsed)/limit)),
// truncated. A zero limit yields no bonus.
func timedScore(base, limitSeconds int, elapsed float64) int {
	points := decimal.NewFromInt(int64(base))
	if limitSeconds <= 0 {
		return int(points.IntPart())
	}
	if elapsed < 0 {
		elapsed = 0
	}
	limit := decimal.NewFromInt(int64(limitSeconds))
	remaining := limit.Sub(decimal.NewFromFloat(elapsed))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	bonus := remaining.Div(limit)
	return int(points.Mul(decimal.NewFromInt(1).Add(bonus.Mul(bonusRate))).IntPart())
}
