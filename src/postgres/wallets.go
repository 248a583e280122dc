package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

// EnsureWallet fetches the wallet for owner, creating it with the default
// reputation and a one-time welcome bonus entry if it does not exist yet.
// Wallets are never created any other way and never deleted.
func EnsureWallet(ctx context.Context, q Querier, owner string) (*model.Wallet, error) {
	tag, err := q.Exec(ctx,
		`INSERT INTO wallets(owner, balance, reputation, created, updated)
		 VALUES ($1, $2, $3, $4, $4) ON CONFLICT (owner) DO NOTHING`,
		owner, model.WelcomeBonus.String(), model.ReputationDefault.String(), time.Now().UTC())
	if err != nil {
		return nil, errors.Wrapf(err, "failed creating wallet for %s", owner)
	}
	if tag.RowsAffected() == 1 {
		_, err = q.Exec(ctx,
			`INSERT INTO ledger_entries(id, owner, amount, kind, reason, created)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), owner, model.WelcomeBonus.String(), model.EntryKindBonus,
			"welcome bonus", time.Now().UTC())
		if err != nil {
			return nil, errors.Wrapf(err, "failed recording welcome bonus for %s", owner)
		}
	}
	return GetWallet(ctx, q, owner)
}

// GetWallet returns nil without error when the wallet does not exist.
func GetWallet(ctx context.Context, q Querier, owner string) (*model.Wallet, error) {
	rows, err := q.Query(ctx,
		`SELECT owner, balance::text, reputation::text, moderator,
		        validations_made, validations_received, validations_positive,
		        validations_negative, suggestions_delivered, created, updated
		 FROM wallets WHERE owner = $1`, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching wallet %s", owner)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	return scanWallet(rows.Scan)
}

func scanWallet(scan func(dest ...any) error) (*model.Wallet, error) {
	w := &model.Wallet{}
	var balance, reputation string
	if err := scan(&w.Owner, &balance, &reputation, &w.Moderator,
		&w.ValidationsMade, &w.ValidationsReceived, &w.ValidationsPositive,
		&w.ValidationsNegative, &w.SuggestionsDelivered, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling wallet row")
	}
	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, errors.Wrap(err, "bad balance in wallet row")
	}
	if w.Reputation, err = decimal.NewFromString(reputation); err != nil {
		return nil, errors.Wrap(err, "bad reputation in wallet row")
	}
	return w, nil
}

func UpdateWalletBalance(ctx context.Context, q Querier, owner string, balance decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE wallets SET balance = $1, updated = $2 WHERE owner = $3`,
		balance.String(), time.Now().UTC(), owner)
	return errors.Wrapf(err, "failed updating balance for %s", owner)
}

func UpdateWalletReputation(ctx context.Context, q Querier, owner string, reputation decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE wallets SET reputation = $1, updated = $2 WHERE owner = $3`,
		reputation.String(), time.Now().UTC(), owner)
	return errors.Wrapf(err, "failed updating reputation for %s", owner)
}

// BumpValidationReceived increments the contributor-side validation counters
// after an automatic price validation lands.
func BumpValidationReceived(ctx context.Context, q Querier, owner string, positive bool) error {
	column := "validations_negative"
	if positive {
		column = "validations_positive"
	}
	_, err := q.Exec(ctx,
		`UPDATE wallets SET validations_received = validations_received + 1, `+
			column+` = `+column+` + 1, updated = $1 WHERE owner = $2`,
		time.Now().UTC(), owner)
	return errors.Wrapf(err, "failed bumping validation counters for %s", owner)
}

// BumpValidationsMade credits every manual contributor whose price served
// in the reference population for a validation round.
func BumpValidationsMade(ctx context.Context, q Querier, productId string, since time.Time, exclude uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE wallets SET validations_made = validations_made + 1, updated = $1
		 WHERE owner IN (
			SELECT DISTINCT contributor FROM prices
			WHERE product_id = $2 AND created >= $3 AND id != $4
			  AND manual AND contributor != '')`,
		time.Now().UTC(), productId, since, exclude)
	return errors.Wrapf(err, "failed bumping validations made for product %s", productId)
}

func BumpSuggestionsDelivered(ctx context.Context, q Querier, owner string) error {
	_, err := q.Exec(ctx,
		`UPDATE wallets SET suggestions_delivered = suggestions_delivered + 1, updated = $1 WHERE owner = $2`,
		time.Now().UTC(), owner)
	return errors.Wrapf(err, "failed bumping delivered count for %s", owner)
}

func SetModerator(ctx context.Context, q Querier, owner string, moderator bool) error {
	_, err := q.Exec(ctx,
		`UPDATE wallets SET moderator = $1, updated = $2 WHERE owner = $3`,
		moderator, time.Now().UTC(), owner)
	return errors.Wrapf(err, "failed setting moderator flag for %s", owner)
}
