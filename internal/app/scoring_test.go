package app

import "testing"

func TestIsCorrect(t *testing.T) {
	cases := []struct {
		submitted, expected string
		want                bool
	}{
		{"mars", "Mars", true},
		{"  MARS ", "Mars", true},
		{"the Red Planet Mars", "Mars", true},
		{"carbon", "Carbon dioxide", true},
		{"pollen", "Nectar/Pollen", true},
		{"Venus", "Mars", false},
		{"", "Mars", false},
		{"   ", "Mars", false},
	}
	for _, tc := range cases {
		if got := isCorrect(tc.submitted, tc.expected); got != tc.want {
			t.Fatalf("isCorrect(%q, %q) = %v, want %v", tc.submitted, tc.expected, got, tc.want)
		}
	}
}

func TestTimedScoreBonus(t *testing.T) {
	if got := timedScore(10, 15, 0); got != 15 {
		t.Fatalf("expected full bonus 15, got %d", got)
	}
	if got := timedScore(10, 15, 3); got != 14 {
		t.Fatalf("expected 14, got %d", got)
	}
	if got := timedScore(10, 15, 15); got != 10 {
		t.Fatalf("expected base points at the deadline, got %d", got)
	}
	if got := timedScore(10, 15, 40); got != 10 {
		t.Fatalf("expected no negative bonus, got %d", got)
	}
	if got := timedScore(10, 15, -5); got != 15 {
		t.Fatalf("expected negative elapsed clamped, got %d", got)
	}
	if got := timedScore(25, 0, 0); got != 25 {
		t.Fatalf("expected zero limit to mean no bonus, got %d", got)
	}
}

func TestTimedScoreMonotonic(t *testing.T) {
	prev := timedScore(20, 25, 0)
	if prev < 20 {
		t.Fatalf("expected score >= base at elapsed 0, got %d", prev)
	}
	for elapsed := 0.25; elapsed <= 30; elapsed += 0.25 {
		got := timedScore(20, 25, elapsed)
		if got > prev {
			t.Fatalf("score rose from %d to %d at elapsed %.2f", prev, got, elapsed)
		}
		prev = got
	}
}
