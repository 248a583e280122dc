package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

// InsertEntry appends one immutable ledger entry. Entries are never edited
// or deleted; the wallet balance must always equal their sum.
func InsertEntry(ctx context.Context, q Querier, entry *model.LedgerEntry) error {
	if entry.Id == uuid.Nil {
		entry.Id = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO ledger_entries(id, owner, amount, kind, reason, ref, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Id, entry.Owner, entry.Amount.String(), entry.Kind, entry.Reason,
		entry.Ref, entry.CreatedAt)
	return errors.Wrapf(err, "failed recording %s entry for %s", entry.Kind, entry.Owner)
}

func GetEntries(ctx context.Context, q Querier, owner string, limit int) ([]*model.LedgerEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT id, owner, amount::text, kind, reason, ref, created
		 FROM ledger_entries WHERE owner = $1
		 ORDER BY created DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching ledger entries for %s", owner)
	}
	defer rows.Close()

	var fetched []*model.LedgerEntry
	for rows.Next() {
		e := &model.LedgerEntry{}
		var amount string
		if err := rows.Scan(&e.Id, &e.Owner, &amount, &e.Kind, &e.Reason, &e.Ref, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling ledger entry")
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Wrap(err, "bad amount in ledger entry")
		}
		fetched = append(fetched, e)
	}
	return fetched, nil
}

// SumEntries recomputes a wallet balance from the audit trail.
func SumEntries(ctx context.Context, q Querier, owner string) (decimal.Decimal, error) {
	var sum string
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries WHERE owner = $1`,
		owner).Scan(&sum)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed summing ledger entries for %s", owner)
	}
	return decimal.NewFromString(sum)
}

// EscrowOutstanding derives the still-held amount for a suggestion from the
// ledger alone. Hold entries are negative debits against the author, so the
// outstanding amount is the negated sum over all escrow-tagged entries.
func EscrowOutstanding(ctx context.Context, q Querier, suggestionId uuid.UUID) (decimal.Decimal, error) {
	var sum string
	err := q.QueryRow(ctx,
		`SELECT COALESCE(-SUM(amount), 0)::text FROM ledger_entries
		 WHERE ref = $1 AND kind IN ('escrow_hold', 'escrow_release', 'escrow_return')`,
		suggestionId).Scan(&sum)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed deriving escrow for suggestion %s", suggestionId)
	}
	return decimal.NewFromString(sum)
}

// HasEscrowHold reports whether a hold entry was ever written for the
// suggestion, held or already resolved.
func HasEscrowHold(ctx context.Context, q Querier, suggestionId uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE ref = $1 AND kind = 'escrow_hold')`,
		suggestionId).Scan(&exists)
	return exists, errors.Wrapf(err, "failed checking escrow hold for suggestion %s", suggestionId)
}
