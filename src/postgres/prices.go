package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/shopspring/decimal"
)

func InsertPrice(ctx context.Context, q Querier, price *model.Price) error {
	if price.Id == uuid.Nil {
		price.Id = uuid.New()
	}
	if price.CreatedAt.IsZero() {
		price.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO prices(id, product_id, price, contributor, manual, created)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		price.Id, price.ProductId, price.Price.String(), price.Contributor,
		price.Manual, price.CreatedAt)
	return errors.Wrapf(err, "failed recording price for product %s", price.ProductId)
}

// RecentPrices returns the price population for one product inside the
// consensus window, excluding the record being validated.
func RecentPrices(ctx context.Context, q Querier, productId string, since time.Time, exclude uuid.UUID) ([]decimal.Decimal, error) {
	rows, err := q.Query(ctx,
		`SELECT price::text FROM prices
		 WHERE product_id = $1 AND created >= $2 AND id != $3`,
		productId, since, exclude)
	if err != nil {
		return nil, errors.Wrapf(err, "failed fetching recent prices for product %s", productId)
	}
	defer rows.Close()

	var population []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling price row")
		}
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrap(err, "bad price in price row")
		}
		population = append(population, p)
	}
	return population, nil
}
