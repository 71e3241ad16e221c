package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LowStockThreshold is the stock level below which a product is flagged
// for reorder attention. Unit-agnostic.
const LowStockThreshold = 10.0

// Product represents a catalog item owned by one shopkeeper. Stock is a
// real number (kg, litres, pieces) and is never negative.
type Product struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	CostPrice    float64   `json:"cost_price" db:"cost_price"`
	SellingPrice float64   `json:"selling_price" db:"selling_price"`
	Stock        float64   `json:"stock" db:"stock"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NormalizeName folds a product name to its canonical catalog form.
// Product uniqueness per owner is defined over this form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
