package escrow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/schema"
	"github.com/precolabs/preco-ledger/src/common"
	"github.com/precolabs/preco-ledger/src/ledger"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var manager *Manager

func TestMain(m *testing.M) {
	logger := common.ConfigureZap(zap.DebugLevel)
	postgres.ConfigureDockerConnection()
	if err := postgres.Migrate(context.Background(), schema.Files); err != nil {
		panic(err)
	}
	manager = New(logger, ledger.New(logger))
	m.Run()
}

func cleanTables() {
	ctx := context.Background()
	postgres.DoExecOrDie(ctx, "DELETE from ledger_entries")
	postgres.DoExecOrDie(ctx, "DELETE from wallets")
}

func TestHoldReleaseLifecycle(t *testing.T) {
	cleanTables()
	ctx := context.Background()
	suggestionId := uuid.New()
	amount := decimal.NewFromInt(5)

	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		return manager.Hold(ctx, tx, "author", amount, suggestionId)
	})
	if err != nil {
		t.Fatal(err)
	}

	// a second hold against the same suggestion is an error
	err = postgres.DoTx(ctx, func(tx pgx.Tx) error {
		return manager.Hold(ctx, tx, "author", amount, suggestionId)
	})
	if !errors.Is(err, model.ErrEscrowAlreadyHeld) {
		t.Fatalf("expected ErrEscrowAlreadyHeld, got %v", err)
	}

	err = postgres.DoTx(ctx, func(tx pgx.Tx) error {
		outstanding, err := Outstanding(ctx, tx, suggestionId)
		if err != nil {
			return err
		}
		if !outstanding.Equal(amount) {
			t.Fatalf("expected outstanding %s, got %s", amount, outstanding)
		}
		released, err := manager.Release(ctx, tx, suggestionId, "moderator")
		if err != nil {
			return err
		}
		if !released.Equal(amount) {
			t.Fatalf("expected release of %s, got %s", amount, released)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// exactly one of release/return fires per hold
	err = postgres.DoTx(ctx, func(tx pgx.Tx) error {
		_, err := manager.Return(ctx, tx, suggestionId, "author")
		return err
	})
	if !errors.Is(err, model.ErrNoEscrowHeld) {
		t.Fatalf("expected ErrNoEscrowHeld after release, got %v", err)
	}
}

func TestReleaseWithoutHold(t *testing.T) {
	cleanTables()
	ctx := context.Background()

	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		_, err := manager.Release(ctx, tx, uuid.New(), "moderator")
		return err
	})
	if !errors.Is(err, model.ErrNoEscrowHeld) {
		t.Fatalf("expected ErrNoEscrowHeld, got %v", err)
	}
}

func TestHoldInsufficientBalance(t *testing.T) {
	cleanTables()
	ctx := context.Background()

	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		// fresh wallets only carry the welcome bonus
		return manager.Hold(ctx, tx, "pauper", decimal.NewFromInt(50), uuid.New())
	})
	var insufficient *model.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
}
