package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func InsertRemark(ctx context.Context, q Querier, remark *model.Remark) error {
	if remark.Id == uuid.Nil {
		remark.Id = uuid.New()
	}
	if remark.CreatedAt.IsZero() {
		remark.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO remarks(id, author, body, likes, dislikes, applied_delta, earns_reputation, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		remark.Id, remark.Author, remark.Body, remark.Likes, remark.Dislikes,
		remark.AppliedDelta.String(), remark.EarnsReputation, remark.CreatedAt)
	return errors.Wrapf(err, "failed recording remark by %s", remark.Author)
}

// GetRemark returns nil without error when the id is unknown.
func GetRemark(ctx context.Context, q Querier, id uuid.UUID) (*model.Remark, error) {
	rows, err := q.Query(ctx,
		`SELECT id, author, body, likes, dislikes, applied_delta::text, earns_reputation, created
		 FROM remarks WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching remark %s", id)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	r := &model.Remark{}
	var applied string
	if err := rows.Scan(&r.Id, &r.Author, &r.Body, &r.Likes, &r.Dislikes, &applied,
		&r.EarnsReputation, &r.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling remark row")
	}
	if r.AppliedDelta, err = decimal.NewFromString(applied); err != nil {
		return nil, errors.Wrap(err, "bad applied_delta in remark row")
	}
	return r, nil
}

// UpdateRemarkTally writes the recomputed like/dislike counts and the
// reputation standing currently applied for the remark.
func UpdateRemarkTally(ctx context.Context, q Querier, id uuid.UUID, likes, dislikes int, applied decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE remarks SET likes = $1, dislikes = $2, applied_delta = $3 WHERE id = $4`,
		likes, dislikes, applied.String(), id)
	return errors.Wrapf(err, "failed updating tally for remark %s", id)
}

// CountRemarksOnDay counts an author's remarks on one UTC calendar day,
// the postgres fallback for the daily reputation earn cap.
func CountRemarksOnDay(ctx context.Context, q Querier, author string, day time.Time) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM remarks WHERE author = $1 AND created::date = $2::date`,
		author, day.UTC()).Scan(&count)
	return count, errors.Wrapf(err, "failed counting remarks for %s", author)
}

// GetRemarkVote returns the voter's current vote on the remark, or nil.
func GetRemarkVote(ctx context.Context, q Querier, remarkId uuid.UUID, voter string) (*bool, error) {
	rows, err := q.Query(ctx,
		`SELECT liked FROM remark_votes WHERE remark_id = $1 AND voter = $2`, remarkId, voter)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching remark vote by %s", voter)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	var liked bool
	if err := rows.Scan(&liked); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling remark vote")
	}
	return &liked, nil
}

func UpsertRemarkVote(ctx context.Context, q Querier, remarkId uuid.UUID, voter string, liked bool) error {
	_, err := q.Exec(ctx,
		`INSERT INTO remark_votes(remark_id, voter, liked, created)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (remark_id, voter) DO UPDATE SET liked = $3, created = $4`,
		remarkId, voter, liked, time.Now().UTC())
	return errors.Wrapf(err, "failed recording remark vote by %s", voter)
}

func DeleteRemarkVote(ctx context.Context, q Querier, remarkId uuid.UUID, voter string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM remark_votes WHERE remark_id = $1 AND voter = $2`, remarkId, voter)
	return errors.Wrapf(err, "failed removing remark vote by %s", voter)
}

func CountRemarkVotes(ctx context.Context, q Querier, remarkId uuid.UUID) (likes, dislikes int, err error) {
	err = q.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE liked), COUNT(*) FILTER (WHERE NOT liked)
		 FROM remark_votes WHERE remark_id = $1`, remarkId).Scan(&likes, &dislikes)
	return likes, dislikes, errors.Wrapf(err, "failed counting votes for remark %s", remarkId)
}
