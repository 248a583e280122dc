package validator

import (
	"testing"

	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func dec(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func TestMedian(t *testing.T) {
	cases := []struct {
		population []decimal.Decimal
		expected   string
	}{
		{[]decimal.Decimal{dec("8.00")}, "8.00"},
		{[]decimal.Decimal{dec("8.00"), dec("8.20")}, "8.10"},
		{[]decimal.Decimal{dec("8.00"), dec("8.20"), dec("7.80")}, "8.00"},
		{[]decimal.Decimal{dec("4"), dec("1"), dec("3"), dec("2")}, "2.5"},
	}
	for _, c := range cases {
		got := Median(c.population)
		if !got.Equal(dec(c.expected)) {
			t.Fatalf("wrong median for %v, expected %s, got %s", c.population, c.expected, got)
		}
	}
}

func TestMedianLeavesInputAlone(t *testing.T) {
	population := []decimal.Decimal{dec("3"), dec("1"), dec("2")}
	Median(population)
	if !population[0].Equal(dec("3")) {
		t.Fatal("median must not reorder the caller's population")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		pctDiff  float64
		outcome  model.ValidationOutcome
		expected string
	}{
		{0, model.OutcomeNearConsensus, "2"},
		{3.7, model.OutcomeNearConsensus, "2"},
		{30, model.OutcomeNearConsensus, "2"}, // inclusive upper bound
		{30.1, model.OutcomeBorderline, "0"},
		{50, model.OutcomeBorderline, "0"}, // inclusive upper bound
		{50.1, model.OutcomeOutlier, "-5"},
		{87.5, model.OutcomeOutlier, "-5"},
	}
	for _, c := range cases {
		outcome, delta := Classify(c.pctDiff)
		if outcome != c.outcome {
			t.Fatalf("wrong outcome for %.1f%%, expected %s, got %s", c.pctDiff, c.outcome, outcome)
		}
		if !delta.Equal(dec(c.expected)) {
			t.Fatalf("wrong delta for %.1f%%, expected %s, got %s", c.pctDiff, c.expected, delta)
		}
	}
}
