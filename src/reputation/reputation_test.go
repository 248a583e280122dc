package reputation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClamp(t *testing.T) {
	cases := map[string]string{
		"100":  "100",
		"-3":   "0",
		"0":    "0",
		"200":  "200",
		"225":  "200",
		"-0.5": "0",
	}
	for raw, expected := range cases {
		got := Clamp(decimal.RequireFromString(raw))
		if !got.Equal(decimal.RequireFromString(expected)) {
			t.Fatalf("wrong clamp for %s, expected %s, got %s", raw, expected, got)
		}
	}
}

func TestRemarkStanding(t *testing.T) {
	cases := []struct {
		likes, dislikes int
		expected        string
	}{
		{0, 0, "0"},
		{1, 0, "0.1"},
		{0, 1, "-0.1"},
		{1, 1, "0"},
		{3, 1, "0.05"},
		{1, 3, "-0.05"},
		{2, 1, "0.03"}, // (1/3)*0.1 rounded to 2 places
	}
	for _, c := range cases {
		got := RemarkStanding(c.likes, c.dislikes)
		if !got.Equal(decimal.RequireFromString(c.expected)) {
			t.Fatalf("wrong standing for %d/%d, expected %s, got %s",
				c.likes, c.dislikes, c.expected, got)
		}
	}
}

func TestRemarkStandingIdempotent(t *testing.T) {
	// re-applying the same tally must net to zero movement
	applied := decimal.Zero
	reputation := decimal.RequireFromString("100")
	for i := 0; i < 5; i++ {
		standing := RemarkStanding(3, 1)
		reputation = Clamp(reputation.Add(standing.Sub(applied)))
		applied = standing
	}
	if !reputation.Equal(decimal.RequireFromString("100.05")) {
		t.Fatalf("expected reputation 100.05 after repeated recompute, got %s", reputation)
	}
}
