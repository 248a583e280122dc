package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scorer applies bounded reputation deltas. Clamping at [0, 200] is silent;
// callers must report the Applied value, not the Requested one.
type Scorer struct {
	logger *zap.Logger
	rdb    *redis.Client
}

func NewScorer(logger *zap.Logger, rdb *redis.Client) *Scorer {
	return &Scorer{logger: logger.Named("reputation"), rdb: rdb}
}

type Adjustment struct {
	Old       decimal.Decimal
	New       decimal.Decimal
	Requested decimal.Decimal
	Applied   decimal.Decimal // New - Old, may be smaller than Requested when clamped
}

// Clamp bounds a reputation value to [ReputationMin, ReputationMax].
func Clamp(reputation decimal.Decimal) decimal.Decimal {
	if reputation.LessThan(model.ReputationMin) {
		return model.ReputationMin
	}
	if reputation.GreaterThan(model.ReputationMax) {
		return model.ReputationMax
	}
	return reputation
}

func (s *Scorer) Adjust(ctx context.Context, q postgres.Querier, owner string,
	delta decimal.Decimal, reason string) (*Adjustment, error) {
	wallet, err := postgres.EnsureWallet(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	updated := Clamp(wallet.Reputation.Add(delta))
	if err := postgres.UpdateWalletReputation(ctx, q, owner, updated); err != nil {
		return nil, err
	}
	adj := &Adjustment{
		Old:       wallet.Reputation,
		New:       updated,
		Requested: delta,
		Applied:   updated.Sub(wallet.Reputation),
	}
	s.logger.Info("adjusted reputation",
		zap.String("owner", owner),
		zap.String("delta", adj.Applied.String()),
		zap.String("reputation", updated.String()),
		zap.String("reason", reason))
	return adj, nil
}

// RemarkStanding is the reputation a remark currently grants its author:
// round(((likes - dislikes) / totalVotes) * 0.1, 2), zero with no votes.
func RemarkStanding(likes, dislikes int) decimal.Decimal {
	total := likes + dislikes
	if total == 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(likes - dislikes)).
		Div(decimal.NewFromInt(int64(total)))
	return ratio.Mul(decimal.NewFromFloat(0.1)).Round(2)
}

// ReapplyRemarkStanding recomputes the remark's standing from the current
// tally and applies only the difference from what was applied before, so
// repeated recomputation with the same votes is a no-op. Remarks past the
// author's daily cap keep their tally but never move reputation.
func (s *Scorer) ReapplyRemarkStanding(ctx context.Context, q postgres.Querier,
	remark *model.Remark, likes, dislikes int) (*Adjustment, error) {
	if !remark.EarnsReputation {
		if err := postgres.UpdateRemarkTally(ctx, q, remark.Id, likes, dislikes, remark.AppliedDelta); err != nil {
			return nil, err
		}
		return &Adjustment{}, nil
	}
	standing := RemarkStanding(likes, dislikes)
	adj, err := s.Adjust(ctx, q, remark.Author, standing.Sub(remark.AppliedDelta),
		fmt.Sprintf("remark %s standing", remark.Id))
	if err != nil {
		return nil, err
	}
	applied := remark.AppliedDelta.Add(adj.Applied)
	if err := postgres.UpdateRemarkTally(ctx, q, remark.Id, likes, dislikes, applied); err != nil {
		return nil, err
	}
	remark.Likes, remark.Dislikes, remark.AppliedDelta = likes, dislikes, applied
	return adj, nil
}

const remarkCapTTL = 48 * time.Hour

// RemarkEarnsReputation decides whether the author's next remark still
// counts toward reputation today. The counter lives in redis keyed by UTC
// day; without redis it falls back to counting stored remarks.
func (s *Scorer) RemarkEarnsReputation(ctx context.Context, q postgres.Querier,
	author string, now time.Time) (bool, error) {
	if s.rdb == nil {
		count, err := postgres.CountRemarksOnDay(ctx, q, author, now)
		if err != nil {
			return false, err
		}
		return count < model.RemarkDailyEarnCap, nil
	}
	key := fmt.Sprintf("remark_cap:%s:%s", author, now.UTC().Format("2006-01-02"))
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed bumping remark cap counter in redis")
	}
	if n == 1 {
		s.rdb.Expire(ctx, key, remarkCapTTL)
	}
	return n <= model.RemarkDailyEarnCap, nil
}
