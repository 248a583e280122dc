package escrow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/precolabs/preco-ledger/src/ledger"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager holds tokens debited from a suggestion's author until the
// suggestion resolves. Escrow state is derived strictly from ledger entry
// kinds, never tracked in a second store that could drift.
type Manager struct {
	logger *zap.Logger
	ledger *ledger.Ledger
}

func New(logger *zap.Logger, l *ledger.Ledger) *Manager {
	return &Manager{logger: logger.Named("escrow"), ledger: l}
}

// Hold debits amount from the owner and records it as held against the
// suggestion. A suggestion can be held against exactly once.
func (m *Manager) Hold(ctx context.Context, q postgres.Querier, owner string,
	amount decimal.Decimal, suggestionId uuid.UUID) error {
	held, err := postgres.HasEscrowHold(ctx, q, suggestionId)
	if err != nil {
		return err
	}
	if held {
		return model.ErrEscrowAlreadyHeld
	}
	ref := suggestionId
	_, err = m.ledger.Apply(ctx, q, owner, amount.Neg(), model.EntryKindEscrowHold,
		fmt.Sprintf("escrow hold for suggestion %s", suggestionId), &ref)
	return err
}

// Release pays the held amount out to a wallet, normally the implementing
// moderator's. Exactly one of Release or Return fires per hold.
func (m *Manager) Release(ctx context.Context, q postgres.Querier,
	suggestionId uuid.UUID, toOwner string) (decimal.Decimal, error) {
	return m.resolve(ctx, q, suggestionId, toOwner, model.EntryKindEscrowRelease,
		fmt.Sprintf("escrow release for suggestion %s", suggestionId))
}

// Return gives the held amount back to the suggestion's author.
func (m *Manager) Return(ctx context.Context, q postgres.Querier,
	suggestionId uuid.UUID, author string) (decimal.Decimal, error) {
	return m.resolve(ctx, q, suggestionId, author, model.EntryKindEscrowReturn,
		fmt.Sprintf("escrow return for suggestion %s", suggestionId))
}

func (m *Manager) resolve(ctx context.Context, q postgres.Querier,
	suggestionId uuid.UUID, toOwner string, kind model.EntryKind, reason string) (decimal.Decimal, error) {
	outstanding, err := Outstanding(ctx, q, suggestionId)
	if err != nil {
		return decimal.Zero, err
	}
	if !outstanding.IsPositive() {
		return decimal.Zero, model.ErrNoEscrowHeld
	}
	ref := suggestionId
	if _, err := m.ledger.Apply(ctx, q, toOwner, outstanding, kind, reason, &ref); err != nil {
		return decimal.Zero, err
	}
	m.logger.Info("resolved escrow",
		zap.String("suggestion", suggestionId.String()),
		zap.String("to", toOwner),
		zap.String("kind", string(kind)),
		zap.String("amount", outstanding.String()))
	return outstanding, nil
}

// Outstanding derives the currently held amount for a suggestion from the
// ledger's escrow-tagged entries.
func Outstanding(ctx context.Context, q postgres.Querier, suggestionId uuid.UUID) (decimal.Decimal, error) {
	return postgres.EscrowOutstanding(ctx, q, suggestionId)
}
