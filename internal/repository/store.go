package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shoptalk/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductSeed carries the price information accompanying a product
// resolve. Cost and Price always apply to a newly created product
// (Price falling back to Cost when unset). With Hint set, positive
// values also overwrite an existing product's prices, most recent
// wins; without it, an existing product is left untouched.
type ProductSeed struct {
	Cost  float64
	Price float64
	Hint  bool
}

// LedgerTx is the write surface available inside one atomic unit of
// work. The product row returned by GetOrCreateProduct stays locked
// until the transaction ends, so read-modify-write on stock is safe.
type LedgerTx interface {
	GetOrCreateProduct(ctx context.Context, userID uuid.UUID, name string, seed ProductSeed) (*domain.Product, error)
	UpdateStock(ctx context.Context, productID uuid.UUID, stock float64) error
	InsertSale(ctx context.Context, sale *domain.Sale) error
	InsertPurchase(ctx context.Context, purchase *domain.Purchase) error
	InsertInvoice(ctx context.Context, invoice *domain.Invoice) error
}

// Store runs a function inside one database transaction. The
// transaction commits iff fn returns nil; any error rolls everything
// back, so partial ledger writes are never observable.
type Store interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

type postgresStore struct {
	db *sql.DB
}

// NewStore creates a Postgres-backed Store.
func NewStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

// GetOrCreateProduct resolves a product by (owner, normalized name),
// creating it with zero stock when absent. The single INSERT .. ON
// CONFLICT statement makes a concurrent first-write race land on the
// update path instead of erroring, and row-locks the product either
// way.
func (t *ledgerTx) GetOrCreateProduct(ctx context.Context, userID uuid.UUID, name string, seed ProductSeed) (*domain.Product, error) {
	normalized := domain.NormalizeName(name)

	// Defaults for a brand new row: selling price falls back to cost.
	insertPrice := seed.Price
	if insertPrice <= 0 {
		insertPrice = seed.Cost
	}

	// Hints overwrite an existing row only in hint mode, and only when
	// positive. Zero disables the corresponding CASE branch.
	var updateCost, updatePrice float64
	if seed.Hint {
		updateCost = seed.Cost
		updatePrice = seed.Price
	}

	query := `
		INSERT INTO products (id, user_id, name, cost_price, selling_price, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (user_id, name) DO UPDATE SET
			cost_price    = CASE WHEN $7::numeric > 0 THEN $7::numeric ELSE products.cost_price END,
			selling_price = CASE WHEN $8::numeric > 0 THEN $8::numeric ELSE products.selling_price END
		RETURNING id, user_id, name, cost_price, selling_price, stock, created_at
	`

	product := &domain.Product{}
	err := t.tx.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		userID,
		normalized,
		seed.Cost,
		insertPrice,
		time.Now(),
		updateCost,
		updatePrice,
	).Scan(
		&product.ID,
		&product.UserID,
		&product.Name,
		&product.CostPrice,
		&product.SellingPrice,
		&product.Stock,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create product: %w", err)
	}

	return product, nil
}

// UpdateStock writes the new stock level for a product resolved earlier
// in the same transaction.
func (t *ledgerTx) UpdateStock(ctx context.Context, productID uuid.UUID, stock float64) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, productID, stock)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// InsertSale appends one sale movement. Sales are never updated or
// deleted.
func (t *ledgerTx) InsertSale(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (id, user_id, product_id, product_name, quantity, selling_price, cost_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		sale.ID,
		sale.UserID,
		sale.ProductID,
		sale.ProductName,
		sale.Quantity,
		sale.SellingPrice,
		sale.CostPrice,
		sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	return nil
}

// InsertPurchase appends one restock movement.
func (t *ledgerTx) InsertPurchase(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, user_id, product_id, product_name, quantity, cost_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		purchase.ID,
		purchase.UserID,
		purchase.ProductID,
		purchase.ProductName,
		purchase.Quantity,
		purchase.CostPrice,
		purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	return nil
}

// InsertInvoice writes the invoice row with its line items as JSONB.
func (t *ledgerTx) InsertInvoice(ctx context.Context, invoice *domain.Invoice) error {
	items, err := json.Marshal(invoice.Items)
	if err != nil {
		return fmt.Errorf("failed to encode invoice items: %w", err)
	}

	query := `
		INSERT INTO invoices (id, user_id, invoice_number, customer_name, total_amount, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = t.tx.ExecContext(
		ctx,
		query,
		invoice.ID,
		invoice.UserID,
		invoice.Number,
		invoice.CustomerName,
		invoice.Total,
		items,
		invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return nil
}
