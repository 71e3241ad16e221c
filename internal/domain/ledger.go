package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is one append-only sale movement. ProductName is a snapshot of
// the normalized name at the time of sale; CostPrice is a snapshot of
// the product's cost so profit can be computed without joins.
type Sale struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name" db:"product_name"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	SellingPrice float64   `json:"selling_price" db:"selling_price"`
	CostPrice    float64   `json:"cost_price" db:"cost_price"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Purchase is one append-only restock movement.
type Purchase struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	CostPrice   float64   `json:"cost_price" db:"cost_price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Invoice groups line items sold to one customer. Total is exactly the
// sum of quantity times price over Items, rounded to 2 decimals.
type Invoice struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	UserID       uuid.UUID     `json:"user_id" db:"user_id"`
	Number       string        `json:"invoice_number" db:"invoice_number"`
	CustomerName string        `json:"customer_name" db:"customer_name"`
	Items        []InvoiceItem `json:"items" db:"items"`
	Total        float64       `json:"total_amount" db:"total_amount"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// StockAlert classifies the stock level after a decrement. The empty
// value means no alert. Alerts are advisory and never block operations.
type StockAlert string

const (
	AlertNone       StockAlert = ""
	AlertLowStock   StockAlert = "low_stock"
	AlertOutOfStock StockAlert = "out_of_stock"
)

// SaleResult is the outcome of a recorded sale.
type SaleResult struct {
	Product        string     `json:"product"`
	Quantity       float64    `json:"quantity"`
	Price          float64    `json:"price"`
	Total          float64    `json:"total"`
	RemainingStock float64    `json:"remaining_stock"`
	Alert          StockAlert `json:"stock_alert,omitempty"`
}

// PurchaseResult is the outcome of a recorded purchase.
type PurchaseResult struct {
	Product      string  `json:"product"`
	Quantity     float64 `json:"quantity"`
	CostPrice    float64 `json:"cost_price"`
	Total        float64 `json:"total"`
	NewStock     float64 `json:"new_stock"`
	IsNewProduct bool    `json:"is_new_product"`
}

// InvoiceResult is the outcome of a created invoice. Warnings lists
// per-line low stock annotations, e.g. "rice (OUT OF STOCK)".
type InvoiceResult struct {
	Number       string        `json:"invoice_number"`
	CustomerName string        `json:"customer_name"`
	Items        []InvoiceItem `json:"items"`
	Total        float64       `json:"total_amount"`
	Warnings     []string      `json:"low_stock_warnings,omitempty"`
}
