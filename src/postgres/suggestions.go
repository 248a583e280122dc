package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func InsertSuggestion(ctx context.Context, q Querier, s *model.Suggestion) error {
	if s.Id == uuid.Nil {
		s.Id = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO suggestions(id, author, title, body, status, favor_power,
		    against_power, tokens_voted, approval_pct, escrow_amount, approvers,
		    implementer, reject_reason, created, approved, resolved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.Id, s.Author, s.Title, s.Body, s.Status, s.FavorPower, s.AgainstPower,
		s.TokensVoted.String(), s.ApprovalPct, s.EscrowAmount.String(), s.Approvers,
		s.Implementer, s.RejectReason, s.CreatedAt, s.ApprovedAt, s.ResolvedAt)
	return errors.Wrapf(err, "failed recording suggestion by %s", s.Author)
}

// UpdateSuggestion persists every mutable field. The governance transition
// functions are the only writers.
func UpdateSuggestion(ctx context.Context, q Querier, s *model.Suggestion) error {
	_, err := q.Exec(ctx,
		`UPDATE suggestions SET status = $1, favor_power = $2, against_power = $3,
		    tokens_voted = $4, approval_pct = $5, approvers = $6, implementer = $7,
		    reject_reason = $8, approved = $9, resolved = $10
		 WHERE id = $11`,
		s.Status, s.FavorPower, s.AgainstPower, s.TokensVoted.String(), s.ApprovalPct,
		s.Approvers, s.Implementer, s.RejectReason, s.ApprovedAt, s.ResolvedAt, s.Id)
	return errors.Wrapf(err, "failed updating suggestion %s", s.Id)
}

// GetSuggestion returns nil without error when the id is unknown.
func GetSuggestion(ctx context.Context, q Querier, id uuid.UUID) (*model.Suggestion, error) {
	rows, err := q.Query(ctx, suggestionColumns+` WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching suggestion %s", id)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	return scanSuggestion(rows.Scan)
}

func ListSuggestions(ctx context.Context, q Querier, status *model.SuggestionStatus, limit int) ([]*model.Suggestion, error) {
	query := suggestionColumns + ` ORDER BY created DESC LIMIT $1`
	args := []any{limit}
	if status != nil {
		query = suggestionColumns + ` WHERE status = $2 ORDER BY created DESC LIMIT $1`
		args = append(args, *status)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed listing suggestions")
	}
	defer rows.Close()

	var fetched []*model.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		fetched = append(fetched, s)
	}
	return fetched, nil
}

const suggestionColumns = `SELECT id, author, title, body, status, favor_power,
    against_power, tokens_voted::text, approval_pct, escrow_amount::text, approvers,
    implementer, reject_reason, created, approved, resolved FROM suggestions`

func scanSuggestion(scan func(dest ...any) error) (*model.Suggestion, error) {
	s := &model.Suggestion{}
	var tokensVoted, escrowAmount string
	if err := scan(&s.Id, &s.Author, &s.Title, &s.Body, &s.Status, &s.FavorPower,
		&s.AgainstPower, &tokensVoted, &s.ApprovalPct, &escrowAmount, &s.Approvers,
		&s.Implementer, &s.RejectReason, &s.CreatedAt, &s.ApprovedAt, &s.ResolvedAt); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling suggestion row")
	}
	var err error
	if s.TokensVoted, err = decimal.NewFromString(tokensVoted); err != nil {
		return nil, errors.Wrap(err, "bad tokens_voted in suggestion row")
	}
	if s.EscrowAmount, err = decimal.NewFromString(escrowAmount); err != nil {
		return nil, errors.Wrap(err, "bad escrow_amount in suggestion row")
	}
	return s, nil
}

// CountByStatus feeds the stats query.
func CountByStatus(ctx context.Context, q Querier) (map[model.SuggestionStatus]int, error) {
	rows, err := q.Query(ctx, `SELECT status, COUNT(*) FROM suggestions GROUP BY 1`)
	if err != nil {
		return nil, errors.Wrap(err, "failed counting suggestions by status")
	}
	defer rows.Close()

	counts := map[model.SuggestionStatus]int{}
	for rows.Next() {
		var status model.SuggestionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling status count")
		}
		counts[status] = count
	}
	return counts, nil
}
