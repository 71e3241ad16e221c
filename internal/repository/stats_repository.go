package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// SystemStats are whole-system counters for the admin view.
type SystemStats struct {
	TotalUsers    int `json:"total_users"`
	TotalProducts int `json:"total_products"`
	TotalSales    int `json:"total_sales"`
	TotalInvoices int `json:"total_invoices"`
}

// StatsRepository aggregates system-wide counters.
type StatsRepository interface {
	SystemStats(ctx context.Context) (*SystemStats, error)
}

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new instance of StatsRepository
func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) SystemStats(ctx context.Context) (*SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM sales),
			(SELECT COUNT(*) FROM invoices)
	`

	stats := &SystemStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalProducts,
		&stats.TotalSales,
		&stats.TotalInvoices,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate system stats: %w", err)
	}

	return stats, nil
}
