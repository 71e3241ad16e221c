package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shoptalk/internal/domain"

	"github.com/google/uuid"
)

// InvoiceRepository is the read-only view over stored invoices.
type InvoiceRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Invoice, error)
}

type invoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository creates a new instance of InvoiceRepository
func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// ListByUser retrieves all invoices of one owner, newest first.
func (r *invoiceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Invoice, error) {
	query := `
		SELECT id, user_id, invoice_number, customer_name, total_amount, items, created_at
		FROM invoices
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*domain.Invoice{}
	for rows.Next() {
		invoice := &domain.Invoice{}
		var items []byte
		err := rows.Scan(
			&invoice.ID,
			&invoice.UserID,
			&invoice.Number,
			&invoice.CustomerName,
			&invoice.Total,
			&items,
			&invoice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if err := json.Unmarshal(items, &invoice.Items); err != nil {
			return nil, fmt.Errorf("failed to decode invoice items: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}
