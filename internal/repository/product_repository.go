package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shoptalk/internal/domain"

	"github.com/google/uuid"
)

// ProductRepository is the read-only view of the catalog. All catalog
// mutation goes through the ledger's unit of work instead.
type ProductRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Product, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	ListBelowStock(ctx context.Context, userID uuid.UUID, threshold float64, limit int) ([]domain.StockItem, error)
	ListOutOfStock(ctx context.Context, userID uuid.UUID) ([]domain.StockItem, error)
	FindByNameFragment(ctx context.Context, userID uuid.UUID, fragment string) (*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// ListByUser retrieves the full inventory of one owner, ordered by name.
func (r *productRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT id, user_id, name, cost_price, selling_price, stock, created_at
		FROM products
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.UserID,
			&product.Name,
			&product.CostPrice,
			&product.SellingPrice,
			&product.Stock,
			&product.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// CountByUser returns how many products the owner has at all.
func (r *productRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ListBelowStock retrieves products under the given stock level,
// lowest first. A limit <= 0 means no limit.
func (r *productRepository) ListBelowStock(ctx context.Context, userID uuid.UUID, threshold float64, limit int) ([]domain.StockItem, error) {
	query := `
		SELECT name, stock, cost_price
		FROM products
		WHERE user_id = $1 AND stock < $2
		ORDER BY stock ASC, name ASC
	`
	args := []interface{}{userID, threshold}

	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer rows.Close()

	items := []domain.StockItem{}
	for rows.Next() {
		var item domain.StockItem
		if err := rows.Scan(&item.Name, &item.Stock, &item.CostPrice); err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock items: %w", err)
	}

	return items, nil
}

// ListOutOfStock retrieves products with zero stock, ordered by name.
func (r *productRepository) ListOutOfStock(ctx context.Context, userID uuid.UUID) ([]domain.StockItem, error) {
	query := `
		SELECT name, stock, cost_price
		FROM products
		WHERE user_id = $1 AND stock <= 0
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list out of stock products: %w", err)
	}
	defer rows.Close()

	items := []domain.StockItem{}
	for rows.Next() {
		var item domain.StockItem
		if err := rows.Scan(&item.Name, &item.Stock, &item.CostPrice); err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock items: %w", err)
	}

	return items, nil
}

// FindByNameFragment returns the first product whose name contains the
// fragment, case-insensitively. Ordering by name keeps the "first
// match" deterministic when several products qualify.
func (r *productRepository) FindByNameFragment(ctx context.Context, userID uuid.UUID, fragment string) (*domain.Product, error) {
	query := `
		SELECT id, user_id, name, cost_price, selling_price, stock, created_at
		FROM products
		WHERE user_id = $1 AND name ILIKE $2
		ORDER BY name ASC, created_at ASC
		LIMIT 1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, userID, "%"+escapeLikePattern(domain.NormalizeName(fragment))+"%").Scan(
		&product.ID,
		&product.UserID,
		&product.Name,
		&product.CostPrice,
		&product.SellingPrice,
		&product.Stock,
		&product.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by name fragment: %w", err)
	}

	return product, nil
}

// escapeLikePattern neutralizes LIKE wildcards so user-supplied
// fragments match literally.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
