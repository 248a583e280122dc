package governance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func TestVotingPower(t *testing.T) {
	cases := map[int64]int64{
		0:   0,
		1:   1,
		2:   1,
		3:   1,
		4:   2,
		9:   3,
		16:  4,
		100: 10,
	}
	var prev int64
	for tokens := int64(0); tokens <= 100; tokens++ {
		power := VotingPower(decimal.NewFromInt(tokens))
		if power < prev {
			t.Fatalf("voting power decreased: %d tokens -> %d, previous %d", tokens, power, prev)
		}
		prev = power
	}
	for tokens, expected := range cases {
		if power := VotingPower(decimal.NewFromInt(tokens)); power != expected {
			t.Fatalf("wrong power for %d tokens, expected %d, got %d", tokens, expected, power)
		}
	}
}

func TestApprovalPct(t *testing.T) {
	if pct := ApprovalPct(0, 0); pct != 0 {
		t.Fatalf("expected 0 pct with no votes, got %f", pct)
	}
	if pct := ApprovalPct(5, 0); pct != 100 {
		t.Fatalf("expected 100 pct, got %f", pct)
	}
	if pct := ApprovalPct(2, 2); pct != 50 {
		t.Fatalf("expected 50 pct, got %f", pct)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		favor, against int64
		expected       model.SuggestionStatus
	}{
		{0, 0, model.StatusInVoting},
		{5, 0, model.StatusApproved},  // four voters spending {4,1,1,1} in favor
		{0, 5, model.StatusRejected},  // symmetric case, all against
		{2, 2, model.StatusInVoting},  // 50% sits between both thresholds
		{3, 2, model.StatusApproved},  // 60% exactly
		{2, 3, model.StatusRejected},  // 40% exactly
		{1, 0, model.StatusApproved},  // single favor vote meets the minimum
		{0, 1, model.StatusRejected},
		{5, 4, model.StatusInVoting},  // ~55.6%
	}
	for _, c := range cases {
		got := Resolve(c.favor, c.against)
		if d := cmp.Diff(c.expected, got); d != "" {
			t.Fatalf("wrong resolution for favor=%d against=%d: %s", c.favor, c.against, d)
		}
		// resolution is a pure function, re-evaluating must not change it
		if again := Resolve(c.favor, c.against); again != got {
			t.Fatalf("resolution not deterministic for favor=%d against=%d", c.favor, c.against)
		}
	}
}
