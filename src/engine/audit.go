package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var conservationMismatches = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "preco_conservation_mismatches",
	Help: "wallets whose balance differs from the sum of their ledger entries",
})

var escrowUnderflows = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "preco_escrow_underflows",
	Help: "suggestions whose derived escrow balance has gone negative",
})

// StartAuditor periodically re-derives every wallet balance and escrow
// hold from the ledger and flags any divergence. The audit trail is the
// source of truth; a mismatch here means a bug, not a data-entry problem.
func (e *Engine) StartAuditor(ctx context.Context, delay time.Duration) {
	logger := e.logger.Named("auditor")
	ticker := time.NewTicker(delay)
	for {
		select {
		case <-ticker.C:
			if err := e.AuditOnce(ctx); err != nil {
				logger.Error("audit pass failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) AuditOnce(ctx context.Context) error {
	logger := e.logger.Named("auditor")
	return postgres.DoQuery(ctx, func(conn *pgx.Conn) error {
		unbalanced, err := auditConservation(ctx, conn)
		if err != nil {
			return err
		}
		conservationMismatches.Set(float64(len(unbalanced)))
		for _, owner := range unbalanced {
			logger.Error("wallet balance diverges from ledger", zap.String("owner", owner))
		}

		underflows, err := auditEscrow(ctx, conn)
		if err != nil {
			return err
		}
		escrowUnderflows.Set(float64(len(underflows)))
		for _, id := range underflows {
			logger.Error("escrow balance went negative", zap.String("suggestion", id))
		}
		return nil
	})
}

func auditConservation(ctx context.Context, q postgres.Querier) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT w.owner FROM wallets w
		 LEFT JOIN ledger_entries e ON e.owner = w.owner
		 GROUP BY w.owner, w.balance
		 HAVING w.balance != COALESCE(SUM(e.amount), 0)`)
	if err != nil {
		return nil, errors.Wrap(err, "failed auditing wallet conservation")
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling audit row")
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

func auditEscrow(ctx context.Context, q postgres.Querier) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT ref::text FROM ledger_entries
		 WHERE ref IS NOT NULL AND kind IN ('escrow_hold', 'escrow_release', 'escrow_return')
		 GROUP BY ref HAVING -SUM(amount) < 0`)
	if err != nil {
		return nil, errors.Wrap(err, "failed auditing escrow balances")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling audit row")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
