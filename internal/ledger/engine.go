// Package ledger applies parsed commands as atomic stock, sale,
// purchase and invoice operations. Every operation is one unit of
// work that commits whole or not at all. Stock never goes negative:
// a decrement below zero is clamped, not rejected.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"shoptalk/internal/domain"
	"shoptalk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrNoInvoiceItems  = errors.New("invoice must contain at least one item")
)

// newProductCostFactor seeds the cost of a product first seen on an
// invoice line, as a fraction of its selling price.
const newProductCostFactor = 0.7

// Engine executes ledger operations against a transactional store.
type Engine struct {
	store  repository.Store
	logger *zap.Logger
}

// NewEngine creates a ledger engine.
func NewEngine(store repository.Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// ClassifyStock maps a stock level to its alert band: zero is out of
// stock, anything under the threshold is low, the rest is fine.
func ClassifyStock(stock float64) domain.StockAlert {
	switch {
	case stock <= 0:
		return domain.AlertOutOfStock
	case stock < domain.LowStockThreshold:
		return domain.AlertLowStock
	default:
		return domain.AlertNone
	}
}

// money computes qty*price rounded to 2 decimals without accumulating
// float error.
func money(qty, price float64) float64 {
	return decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
}

// RecordSale resolves (or creates) the product, decrements its stock
// with the never-negative clamp, and appends one sale movement, all
// inside one transaction. costHint, when positive, updates the
// product's cost price first; the sale row snapshots the resolved cost.
func (e *Engine) RecordSale(ctx context.Context, userID uuid.UUID, productName string, quantity, price, costHint float64) (*domain.SaleResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	var result *domain.SaleResult

	err := e.store.InTx(ctx, func(tx repository.LedgerTx) error {
		product, err := tx.GetOrCreateProduct(ctx, userID, productName, repository.ProductSeed{
			Cost:  costHint,
			Price: price,
			Hint:  true,
		})
		if err != nil {
			return err
		}

		newStock := product.Stock - quantity
		if newStock < 0 {
			newStock = 0
		}

		sale := &domain.Sale{
			ID:           uuid.New(),
			UserID:       userID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     quantity,
			SellingPrice: price,
			CostPrice:    product.CostPrice,
			CreatedAt:    time.Now(),
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if err := tx.UpdateStock(ctx, product.ID, newStock); err != nil {
			return err
		}

		result = &domain.SaleResult{
			Product:        product.Name,
			Quantity:       quantity,
			Price:          price,
			Total:          money(quantity, price),
			RemainingStock: newStock,
			Alert:          ClassifyStock(newStock),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Sale recorded",
		zap.String("user_id", userID.String()),
		zap.String("product", result.Product),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
	)

	return result, nil
}

// RecordPurchase resolves (or creates) the product, increments its
// stock, and appends one purchase movement in one transaction. The
// result flags a product that had no stock before this restock.
func (e *Engine) RecordPurchase(ctx context.Context, userID uuid.UUID, productName string, quantity, costPrice float64) (*domain.PurchaseResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if costPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	var result *domain.PurchaseResult

	err := e.store.InTx(ctx, func(tx repository.LedgerTx) error {
		product, err := tx.GetOrCreateProduct(ctx, userID, productName, repository.ProductSeed{
			Cost: costPrice,
			Hint: true,
		})
		if err != nil {
			return err
		}

		// The resolved product may alias live store state, so the
		// pre-write stock must be captured before UpdateStock runs.
		priorStock := product.Stock
		newStock := priorStock + quantity

		purchase := &domain.Purchase{
			ID:          uuid.New(),
			UserID:      userID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			CostPrice:   costPrice,
			CreatedAt:   time.Now(),
		}
		if err := tx.InsertPurchase(ctx, purchase); err != nil {
			return err
		}
		if err := tx.UpdateStock(ctx, product.ID, newStock); err != nil {
			return err
		}

		result = &domain.PurchaseResult{
			Product:      product.Name,
			Quantity:     quantity,
			CostPrice:    costPrice,
			Total:        money(quantity, costPrice),
			NewStock:     newStock,
			IsNewProduct: priorStock == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Purchase recorded",
		zap.String("user_id", userID.String()),
		zap.String("product", result.Product),
		zap.Float64("quantity", quantity),
		zap.Float64("cost_price", costPrice),
	)

	return result, nil
}

// CreateInvoice writes the invoice row and, for every line item,
// resolves the product and applies the sale decrement, all in one
// transaction, so no partial invoice can ever be observed. Products
// first seen here are seeded with cost = 0.7 x selling price; existing
// products keep their prices.
func (e *Engine) CreateInvoice(ctx context.Context, userID uuid.UUID, customerName string, items []domain.InvoiceItem) (*domain.InvoiceResult, error) {
	if len(items) == 0 {
		return nil, ErrNoInvoiceItems
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if item.Price <= 0 {
			return nil, ErrInvalidPrice
		}
		total = total.Add(decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Price)))
	}
	totalAmount := total.Round(2).InexactFloat64()

	number := newInvoiceNumber()

	var result *domain.InvoiceResult

	err := e.store.InTx(ctx, func(tx repository.LedgerTx) error {
		invoice := &domain.Invoice{
			ID:           uuid.New(),
			UserID:       userID,
			Number:       number,
			CustomerName: customerName,
			Items:        items,
			Total:        totalAmount,
			CreatedAt:    time.Now(),
		}
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return err
		}

		var warnings []string
		for _, item := range items {
			product, err := tx.GetOrCreateProduct(ctx, userID, item.Name, repository.ProductSeed{
				Cost:  newProductCostFactor * item.Price,
				Price: item.Price,
			})
			if err != nil {
				return err
			}

			newStock := product.Stock - item.Quantity
			if newStock < 0 {
				newStock = 0
			}

			sale := &domain.Sale{
				ID:           uuid.New(),
				UserID:       userID,
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     item.Quantity,
				SellingPrice: item.Price,
				CostPrice:    product.CostPrice,
				CreatedAt:    time.Now(),
			}
			if err := tx.InsertSale(ctx, sale); err != nil {
				return err
			}
			if err := tx.UpdateStock(ctx, product.ID, newStock); err != nil {
				return err
			}

			if warning := stockWarning(product.Name, newStock); warning != "" {
				warnings = append(warnings, warning)
			}
		}

		result = &domain.InvoiceResult{
			Number:       number,
			CustomerName: customerName,
			Items:        items,
			Total:        totalAmount,
			Warnings:     warnings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Invoice created",
		zap.String("user_id", userID.String()),
		zap.String("invoice_number", number),
		zap.String("customer", customerName),
		zap.Int("items", len(items)),
	)

	return result, nil
}

// newInvoiceNumber yields a unique, human-scannable invoice number.
// The random suffix keeps two invoices in the same second from
// colliding on the uniqueness constraint.
func newInvoiceNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return "INV-" + time.Now().Format("20060102150405") + "-" + suffix
}

// stockWarning renders a per-line annotation for invoice results.
func stockWarning(name string, stock float64) string {
	switch ClassifyStock(stock) {
	case domain.AlertOutOfStock:
		return name + " (OUT OF STOCK)"
	case domain.AlertLowStock:
		return name + " (" + decimal.NewFromFloat(stock).String() + " left)"
	default:
		return ""
	}
}
