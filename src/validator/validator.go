package validator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/precolabs/preco-ledger/src/reputation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Validator scores a contributed price against the recent population for
// the same product. It is a local, single-product consensus check; only the
// 30-day window is consulted so the reference drifts with the market.
type Validator struct {
	logger *zap.Logger
	scorer *reputation.Scorer
}

func New(logger *zap.Logger, scorer *reputation.Scorer) *Validator {
	return &Validator{logger: logger.Named("validator"), scorer: scorer}
}

// Median of a non-empty population; mean of the middle pair on even sizes.
func Median(population []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(population))
	copy(sorted, population)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

// Classify maps a percentage deviation from the median to an outcome and
// the reputation delta it carries.
func Classify(pctDiff float64) (model.ValidationOutcome, decimal.Decimal) {
	switch {
	case pctDiff <= model.NearConsensusPct:
		return model.OutcomeNearConsensus, model.RepNearConsensus
	case pctDiff > model.OutlierPct:
		return model.OutcomeOutlier, model.RepOutlier
	default:
		return model.OutcomeBorderline, decimal.Zero
	}
}

// ValidateContribution compares the price against all other recent prices
// for the product and applies the resulting reputation delta to the
// contributor. Insufficient population and borderline deviations are valid
// classifications, not errors.
func (v *Validator) ValidateContribution(ctx context.Context, q postgres.Querier,
	price *model.Price) (*model.ValidationResult, error) {
	wallet, err := postgres.EnsureWallet(ctx, q, price.Contributor)
	if err != nil {
		return nil, err
	}
	since := price.CreatedAt.Add(-model.ConsensusWindow)
	if price.CreatedAt.IsZero() {
		since = time.Now().UTC().Add(-model.ConsensusWindow)
	}
	population, err := postgres.RecentPrices(ctx, q, price.ProductId, since, price.Id)
	if err != nil {
		return nil, err
	}
	if len(population) < model.MinPopulation {
		return &model.ValidationResult{
			Outcome:       model.OutcomeInsufficientPopulation,
			OldReputation: wallet.Reputation,
			NewReputation: wallet.Reputation,
		}, nil
	}

	// the population collectively performed this validation
	if err := postgres.BumpValidationsMade(ctx, q, price.ProductId, since, price.Id); err != nil {
		return nil, err
	}

	median := Median(population)
	pctDiff, _ := price.Price.Sub(median).Abs().
		Div(median).Mul(decimal.NewFromInt(100)).Float64()
	outcome, delta := Classify(pctDiff)

	result := &model.ValidationResult{
		Outcome:       outcome,
		Median:        median,
		PctDiff:       pctDiff,
		OldReputation: wallet.Reputation,
		NewReputation: wallet.Reputation,
	}
	if delta.IsZero() {
		return result, nil
	}

	adj, err := v.scorer.Adjust(ctx, q, price.Contributor, delta,
		fmt.Sprintf("price validation for product %s: %s", price.ProductId, outcome))
	if err != nil {
		return nil, err
	}
	if err := postgres.BumpValidationReceived(ctx, q, price.Contributor, delta.IsPositive()); err != nil {
		return nil, err
	}
	result.Delta = adj.Applied
	result.OldReputation = adj.Old
	result.NewReputation = adj.New
	v.logger.Info("validated contribution",
		zap.String("product", price.ProductId),
		zap.String("outcome", string(outcome)),
		zap.Float64("pct_diff", pctDiff))
	return result, nil
}
