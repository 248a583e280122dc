package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger owns all balance arithmetic. Every mutation appends exactly one
// entry and recomputes the balance in the same transaction, so for any
// wallet the balance always equals the sum of its entries.
type Ledger struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	return &Ledger{logger: logger.Named("ledger")}
}

// Apply moves a signed amount through a wallet under the given entry kind.
// A negative amount that would push the balance below zero fails with
// InsufficientBalanceError and writes nothing.
func (l *Ledger) Apply(ctx context.Context, q postgres.Querier, owner string,
	amount decimal.Decimal, kind model.EntryKind, reason string, ref *uuid.UUID) (*model.Wallet, error) {
	wallet, err := postgres.EnsureWallet(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	balance := wallet.Balance.Add(amount)
	if balance.IsNegative() {
		return nil, &model.InsufficientBalanceError{
			Owner:    owner,
			Balance:  wallet.Balance,
			Required: amount.Neg(),
		}
	}
	if err := postgres.UpdateWalletBalance(ctx, q, owner, balance); err != nil {
		return nil, err
	}
	if err := postgres.InsertEntry(ctx, q, &model.LedgerEntry{
		Owner:  owner,
		Amount: amount,
		Kind:   kind,
		Reason: reason,
		Ref:    ref,
	}); err != nil {
		return nil, err
	}
	wallet.Balance = balance
	l.logger.Debug("applied ledger entry",
		zap.String("owner", owner),
		zap.String("amount", amount.String()),
		zap.String("kind", string(kind)))
	return wallet, nil
}

func (l *Ledger) Mint(ctx context.Context, q postgres.Querier, owner string,
	amount decimal.Decimal, reason string, ref *uuid.UUID) (*model.Wallet, error) {
	return l.Apply(ctx, q, owner, amount, model.EntryKindMint, reason, ref)
}

func (l *Ledger) Debit(ctx context.Context, q postgres.Querier, owner string,
	amount decimal.Decimal, reason string) (*model.Wallet, error) {
	return l.Apply(ctx, q, owner, amount.Neg(), model.EntryKindSpend, reason, nil)
}

func (l *Ledger) Credit(ctx context.Context, q postgres.Querier, owner string,
	amount decimal.Decimal, reason string) (*model.Wallet, error) {
	return l.Apply(ctx, q, owner, amount, model.EntryKindBonus, reason, nil)
}

// Balance reads the current balance without creating the wallet.
func (l *Ledger) Balance(ctx context.Context, q postgres.Querier, owner string) (decimal.Decimal, error) {
	wallet, err := postgres.GetWallet(ctx, q, owner)
	if err != nil || wallet == nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// History returns the wallet's entries, most recent first.
func (l *Ledger) History(ctx context.Context, q postgres.Querier, owner string, limit int) ([]*model.LedgerEntry, error) {
	return postgres.GetEntries(ctx, q, owner, limit)
}
