// Package analytics derives read-only projections from the ledger:
// daily summaries, reorder suggestions, price recommendations and
// stock alerts. Nothing in here mutates state.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoptalk/internal/domain"
	"shoptalk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoCostPrice means a price cannot be recommended because the
// product has no recorded cost to derive it from.
var ErrNoCostPrice = errors.New("product has no cost price on record")

// targetMargin is the markup applied over cost when recommending a
// selling price.
const targetMargin = 0.2

const (
	topItemsLimit     = 5
	lowStockListLimit = 5
)

// Service computes projections over the sales ledger and the catalog.
type Service struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	logger   *zap.Logger
}

// NewService creates an analytics service.
func NewService(products repository.ProductRepository, sales repository.SaleRepository, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		sales:    sales,
		logger:   logger,
	}
}

// DailySummary aggregates the current calendar day: revenue, profit,
// units sold, the top sellers and any products running low.
func (s *Service) DailySummary(ctx context.Context, userID uuid.UUID) (*domain.DailySummary, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	revenue, profit, units, err := s.sales.TotalsSince(ctx, userID, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}

	topItems, err := s.sales.TopSellingSince(ctx, userID, midnight, topItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}

	lowStock, err := s.products.ListBelowStock(ctx, userID, domain.LowStockThreshold, lowStockListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}

	summary := &domain.DailySummary{
		Date:           now.Format("2006-01-02"),
		TotalSales:     revenue,
		TotalProfit:    profit,
		TotalUnitsSold: units,
		TopItems:       topItems,
		LowStockItems:  lowStock,
	}
	if len(topItems) > 0 {
		summary.TopSeller = topItems[0].Name
	}

	return summary, nil
}

// ReorderSuggestions lists every product under the low-stock
// threshold. An owner with no products at all is reported as such so
// the caller can distinguish "nothing to reorder" from "nothing
// tracked yet".
func (s *Service) ReorderSuggestions(ctx context.Context, userID uuid.UUID) (*domain.ReorderList, error) {
	count, err := s.products.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build reorder suggestions: %w", err)
	}
	if count == 0 {
		return &domain.ReorderList{NoProducts: true, Items: []domain.StockItem{}}, nil
	}

	items, err := s.products.ListBelowStock(ctx, userID, domain.LowStockThreshold, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build reorder suggestions: %w", err)
	}

	return &domain.ReorderList{Items: items}, nil
}

// RecommendPrice suggests a selling price at a 20% markup over the
// product's recorded cost. The product is matched by name fragment,
// first match wins.
func (s *Service) RecommendPrice(ctx context.Context, userID uuid.UUID, productName string) (*domain.PriceAdvice, error) {
	product, err := s.products.FindByNameFragment(ctx, userID, productName)
	if err != nil {
		return nil, err
	}
	if product.CostPrice <= 0 {
		return nil, ErrNoCostPrice
	}

	recommended := decimal.NewFromFloat(product.CostPrice).
		Mul(decimal.NewFromFloat(1 + targetMargin)).
		Round(2).
		InexactFloat64()

	return &domain.PriceAdvice{
		Product:          product.Name,
		CostPrice:        product.CostPrice,
		RecommendedPrice: recommended,
		Margin:           "20%",
	}, nil
}

// LowStockNotifications splits alerting products into out-of-stock and
// low-stock bands.
func (s *Service) LowStockNotifications(ctx context.Context, userID uuid.UUID) (*domain.StockNotifications, error) {
	outOfStock, err := s.products.ListOutOfStock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build stock notifications: %w", err)
	}

	below, err := s.products.ListBelowStock(ctx, userID, domain.LowStockThreshold, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build stock notifications: %w", err)
	}

	// ListBelowStock includes zero-stock rows; those belong to the
	// out-of-stock band only.
	lowStock := []domain.StockItem{}
	for _, item := range below {
		if item.Stock > 0 {
			lowStock = append(lowStock, item)
		}
	}

	return &domain.StockNotifications{
		OutOfStock:  outOfStock,
		LowStock:    lowStock,
		TotalAlerts: len(outOfStock) + len(lowStock),
	}, nil
}
