package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func InsertVote(ctx context.Context, q Querier, vote *model.Vote) error {
	if vote.Id == uuid.Nil {
		vote.Id = uuid.New()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO votes(id, suggestion_id, voter, tokens_spent, power, favor, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vote.Id, vote.SuggestionId, vote.Voter, vote.TokensSpent.String(),
		vote.Power, vote.Favor, vote.CreatedAt)
	return errors.Wrapf(err, "failed recording vote by %s", vote.Voter)
}

func HasVoted(ctx context.Context, q Querier, suggestionId uuid.UUID, voter string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE suggestion_id = $1 AND voter = $2)`,
		suggestionId, voter).Scan(&exists)
	return exists, errors.Wrapf(err, "failed checking prior vote by %s", voter)
}

func ListVotes(ctx context.Context, q Querier, suggestionId uuid.UUID) ([]*model.Vote, error) {
	rows, err := q.Query(ctx,
		`SELECT id, suggestion_id, voter, tokens_spent::text, power, favor, created
		 FROM votes WHERE suggestion_id = $1 ORDER BY created DESC`, suggestionId)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching votes for suggestion %s", suggestionId)
	}
	defer rows.Close()

	var fetched []*model.Vote
	for rows.Next() {
		v := &model.Vote{}
		var tokens string
		if err := rows.Scan(&v.Id, &v.SuggestionId, &v.Voter, &tokens, &v.Power, &v.Favor, &v.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling vote row")
		}
		if v.TokensSpent, err = decimal.NewFromString(tokens); err != nil {
			return nil, errors.Wrap(err, "bad tokens_spent in vote row")
		}
		fetched = append(fetched, v)
	}
	return fetched, nil
}

// SumTokensVoted totals tokens consumed by voting across all suggestions.
func SumTokensVoted(ctx context.Context, q Querier) (decimal.Decimal, error) {
	var sum string
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(tokens_spent), 0)::text FROM votes`).Scan(&sum)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed summing voted tokens")
	}
	return decimal.NewFromString(sum)
}
