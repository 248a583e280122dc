package governance

import (
	"math"

	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

// VotingPower implements the quadratic cost: power = floor(sqrt(tokens)).
// Power grows sub-linearly in tokens spent, discouraging concentration.
func VotingPower(tokens decimal.Decimal) int64 {
	f, _ := tokens.Float64()
	if f <= 0 {
		return 0
	}
	return int64(math.Floor(math.Sqrt(f)))
}

// ApprovalPct is favor / (favor + against) * 100, zero with no votes.
func ApprovalPct(favor, against int64) float64 {
	total := favor + against
	if total == 0 {
		return 0
	}
	return float64(favor) / float64(total) * 100
}

// Resolve is the auto-resolution rule evaluated after every vote. It is a
// pure function of the tallies: at least one point of total power and an
// approval percentage at or above 60 approves, at or below 40 rejects,
// anything else stays in voting.
func Resolve(favor, against int64) model.SuggestionStatus {
	if favor+against < 1 {
		return model.StatusInVoting
	}
	pct := ApprovalPct(favor, against)
	if pct >= model.ApproveThresholdPct {
		return model.StatusApproved
	}
	if pct <= model.RejectThresholdPct {
		return model.StatusRejected
	}
	return model.StatusInVoting
}
