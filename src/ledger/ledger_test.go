package ledger

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/schema"
	"github.com/precolabs/preco-ledger/src/common"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testLedger *Ledger

func TestMain(m *testing.M) {
	logger := common.ConfigureZap(zap.DebugLevel)
	postgres.ConfigureDockerConnection()
	if err := postgres.Migrate(context.Background(), schema.Files); err != nil {
		panic(err)
	}
	testLedger = New(logger)
	m.Run()
}

func cleanTables() {
	ctx := context.Background()
	postgres.DoExecOrDie(ctx, "DELETE from remark_votes")
	postgres.DoExecOrDie(ctx, "DELETE from remarks")
	postgres.DoExecOrDie(ctx, "DELETE from votes")
	postgres.DoExecOrDie(ctx, "DELETE from suggestions")
	postgres.DoExecOrDie(ctx, "DELETE from ledger_entries")
	postgres.DoExecOrDie(ctx, "DELETE from prices")
	postgres.DoExecOrDie(ctx, "DELETE from wallets")
}

func TestWelcomeBonus(t *testing.T) {
	cleanTables()
	ctx := context.Background()

	var wallet *model.Wallet
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		var err error
		wallet, err = postgres.EnsureWallet(ctx, tx, "alice")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !wallet.Balance.Equal(model.WelcomeBonus) {
		t.Fatalf("expected welcome balance %s, got %s", model.WelcomeBonus, wallet.Balance)
	}
	if !wallet.Reputation.Equal(model.ReputationDefault) {
		t.Fatalf("expected default reputation, got %s", wallet.Reputation)
	}

	entries, err := testLedger.History(ctx, mustConn(t, ctx), "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Kind != model.EntryKindBonus {
		t.Fatalf("expected exactly one bonus entry, got %+v", entries)
	}
}

func TestConservation(t *testing.T) {
	cleanTables()
	ctx := context.Background()

	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		if _, err := testLedger.Mint(ctx, tx, "bob", decimal.NewFromInt(10), "contribution reward", nil); err != nil {
			return err
		}
		_, err := testLedger.Debit(ctx, tx, "bob", decimal.NewFromInt(3), "vote")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	conn := mustConn(t, ctx)
	balance, err := testLedger.Balance(ctx, conn, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(12)) { // 5 welcome + 10 - 3
		t.Fatalf("expected balance 12, got %s", balance)
	}
	sum, err := postgres.SumEntries(ctx, conn, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Equal(balance) {
		t.Fatalf("balance %s diverges from ledger sum %s", balance, sum)
	}
}

func TestDebitInsufficient(t *testing.T) {
	cleanTables()
	ctx := context.Background()

	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		_, err := testLedger.Debit(ctx, tx, "carol", decimal.NewFromInt(100), "too much")
		return err
	})
	var insufficient *model.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !insufficient.Balance.Equal(model.WelcomeBonus) {
		t.Fatalf("expected reported balance %s, got %s", model.WelcomeBonus, insufficient.Balance)
	}

	// the failed debit must not have written an entry
	conn := mustConn(t, ctx)
	entries, err := testLedger.History(ctx, conn, "carol", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Kind == model.EntryKindSpend {
			t.Fatalf("found spend entry after failed debit: %+v", e)
		}
	}
}

func mustConn(t *testing.T, ctx context.Context) *pgx.Conn {
	t.Helper()
	conn, err := postgres.GetConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close(ctx) })
	return conn
}
