package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shoptalk/internal/domain"

	"github.com/google/uuid"
)

// SaleRepository is the read-only aggregation view over the sales
// ledger. Writes happen exclusively inside LedgerTx.
type SaleRepository interface {
	TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (revenue, profit, units float64, err error)
	TopSellingSince(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]domain.TopItem, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// TotalsSince aggregates revenue, profit and units sold from the given
// instant onward. A missing cost snapshot counts as zero cost.
func (r *saleRepository) TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (float64, float64, float64, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity * selling_price), 0),
			COALESCE(SUM(quantity * (selling_price - COALESCE(cost_price, 0))), 0),
			COALESCE(SUM(quantity), 0)
		FROM sales
		WHERE user_id = $1 AND created_at >= $2
	`

	var revenue, profit, units float64
	err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&revenue, &profit, &units)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	return revenue, profit, units, nil
}

// TopSellingSince lists products by quantity sold, descending. Name
// breaks ties so repeated calls agree on the order.
func (r *saleRepository) TopSellingSince(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]domain.TopItem, error) {
	query := `
		SELECT product_name, SUM(quantity) AS qty, SUM(quantity * selling_price) AS revenue
		FROM sales
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY product_name
		ORDER BY qty DESC, product_name ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top selling products: %w", err)
	}
	defer rows.Close()

	items := []domain.TopItem{}
	for rows.Next() {
		var item domain.TopItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top items: %w", err)
	}

	return items, nil
}
