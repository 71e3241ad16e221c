package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shoptalk/internal/analytics"
	"shoptalk/internal/domain"
	"shoptalk/internal/interpreter"
	"shoptalk/internal/ledger"
	"shoptalk/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssistantService turns free-text shopkeeper messages into executed
// ledger operations and projection reads. HandleCommand always yields
// a usable reply: execution failures become an apology message, never
// an error to the caller.
type AssistantService struct {
	interpreter *interpreter.Interpreter
	ledger      *ledger.Engine
	analytics   *analytics.Service
	products    repository.ProductRepository
	invoices    repository.InvoiceRepository
	logger      *zap.Logger
}

// NewAssistantService creates a new AssistantService with its dependencies
func NewAssistantService(
	interp *interpreter.Interpreter,
	engine *ledger.Engine,
	projections *analytics.Service,
	products repository.ProductRepository,
	invoices repository.InvoiceRepository,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		interpreter: interp,
		ledger:      engine,
		analytics:   projections,
		products:    products,
		invoices:    invoices,
		logger:      logger,
	}
}

// HandleCommand interprets one chat message and executes the resulting
// operation for the given owner.
func (s *AssistantService) HandleCommand(ctx context.Context, userID uuid.UUID, message string) *domain.CommandResult {
	cmd := s.interpreter.Interpret(ctx, message)

	s.logger.Info("Command interpreted",
		zap.String("user_id", userID.String()),
		zap.String("intent", string(cmd.Intent)),
	)

	switch cmd.Intent {
	case domain.IntentRecordSale:
		return s.handleSale(ctx, userID, cmd.Entities)
	case domain.IntentRecordPurchase:
		return s.handlePurchase(ctx, userID, cmd.Entities)
	case domain.IntentCreateInvoice:
		return s.handleInvoice(ctx, userID, cmd.Entities)
	case domain.IntentShowInventory:
		return s.handleInventory(ctx, userID)
	case domain.IntentShowSummary:
		return s.handleSummary(ctx, userID)
	case domain.IntentSuggestReorder:
		return s.handleReorder(ctx, userID)
	case domain.IntentRecommendPrice:
		return s.handlePriceQuery(ctx, userID, cmd.Entities)
	case domain.IntentGreeting:
		return s.handleGreeting(ctx, userID)
	case domain.IntentHelp:
		return s.handleHelp()
	default:
		return s.handleUnknown()
	}
}

func (s *AssistantService) handleSale(ctx context.Context, userID uuid.UUID, e domain.Entities) *domain.CommandResult {
	if e.Price <= 0 {
		return &domain.CommandResult{Response: "Please specify the selling price. Example: 'Sold 5 pens at 10 each'"}
	}
	if e.Quantity <= 0 {
		return &domain.CommandResult{Response: "Please specify a positive quantity. Example: 'Sold 5 pens at 10 each'"}
	}

	result, err := s.ledger.RecordSale(ctx, userID, e.Product, e.Quantity, e.Price, 0)
	if err != nil {
		return s.failure(err, "record sale")
	}

	msg := fmt.Sprintf("✅ Sale recorded!\n\n📦 Product: %s\n📊 Quantity: %s\n💰 Price: Rs.%s/-\n💵 Total: Rs.%.2f/-",
		result.Product, num(result.Quantity), num(result.Price), result.Total)

	switch result.Alert {
	case domain.AlertOutOfStock:
		msg += fmt.Sprintf("\n\n⚠️ OUT OF STOCK: %s is now out of stock! Please reorder.", result.Product)
	case domain.AlertLowStock:
		msg += fmt.Sprintf("\n\n⚠️ LOW STOCK: Only %s units of %s remaining!", num(result.RemainingStock), result.Product)
	}

	return &domain.CommandResult{Response: msg, Data: result}
}

func (s *AssistantService) handlePurchase(ctx context.Context, userID uuid.UUID, e domain.Entities) *domain.CommandResult {
	if e.Price <= 0 {
		return &domain.CommandResult{Response: "Please specify the cost price. Example: 'Bought 10 notebooks at 25 each'"}
	}
	if e.Quantity <= 0 {
		return &domain.CommandResult{Response: "Please specify a positive quantity. Example: 'Bought 10 notebooks at 25 each'"}
	}

	result, err := s.ledger.RecordPurchase(ctx, userID, e.Product, e.Quantity, e.Price)
	if err != nil {
		return s.failure(err, "record purchase")
	}

	msg := fmt.Sprintf("✅ Purchase recorded!\n\n📦 Product: %s\n📊 Quantity: %s\n💰 Cost: Rs.%s/-\n💵 Total: Rs.%.2f/-\n📈 New Stock: %s units",
		result.Product, num(result.Quantity), num(result.CostPrice), result.Total, num(result.NewStock))

	if result.IsNewProduct {
		msg += "\n\n🆕 New product added to inventory!"
	}

	return &domain.CommandResult{Response: msg, Data: result}
}

func (s *AssistantService) handleInvoice(ctx context.Context, userID uuid.UUID, e domain.Entities) *domain.CommandResult {
	if len(e.Items) == 0 {
		return &domain.CommandResult{Response: "Please specify items for the invoice. Example: 'Invoice for Ahmed: 5 rice at 80, 2 oil at 150'"}
	}

	customer := e.Customer
	if customer == "" {
		customer = "Customer"
	}

	result, err := s.ledger.CreateInvoice(ctx, userID, customer, e.Items)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidQuantity):
			return &domain.CommandResult{Response: "Please use a positive quantity for every invoice item. Example: 'Invoice for Ahmed: 5 rice at 80'"}
		case errors.Is(err, ledger.ErrInvalidPrice):
			return &domain.CommandResult{Response: "Please use a positive price for every invoice item. Example: 'Invoice for Ahmed: 5 rice at 80'"}
		case errors.Is(err, ledger.ErrNoInvoiceItems):
			return &domain.CommandResult{Response: "Please specify items for the invoice. Example: 'Invoice for Ahmed: 5 rice at 80, 2 oil at 150'"}
		}
		return s.failure(err, "create invoice")
	}

	msg := fmt.Sprintf("✅ Invoice created!\n\n📄 Invoice #: %s\n👤 Customer: %s\n💵 Total: Rs.%.2f/-",
		result.Number, result.CustomerName, result.Total)

	if len(result.Warnings) > 0 {
		var b strings.Builder
		b.WriteString("\n\n⚠️ Low Stock Alert:\n")
		for _, warning := range result.Warnings {
			b.WriteString("• " + warning + "\n")
		}
		msg += b.String()
	}

	return &domain.CommandResult{Response: msg, Data: result}
}

func (s *AssistantService) handleInventory(ctx context.Context, userID uuid.UUID) *domain.CommandResult {
	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return s.failure(err, "list inventory")
	}
	if len(products) == 0 {
		return &domain.CommandResult{Response: "📦 Your inventory is empty. Start adding products by recording purchases!"}
	}

	return &domain.CommandResult{
		Response: fmt.Sprintf("📦 Your Inventory (%d items)", len(products)),
		Data:     products,
	}
}

func (s *AssistantService) handleSummary(ctx context.Context, userID uuid.UUID) *domain.CommandResult {
	summary, err := s.analytics.DailySummary(ctx, userID)
	if err != nil {
		return s.failure(err, "build summary")
	}

	if summary.TotalSales == 0 && summary.TotalUnitsSold == 0 {
		count, err := s.products.CountByUser(ctx, userID)
		if err != nil {
			return s.failure(err, "build summary")
		}
		if count == 0 {
			return &domain.CommandResult{
				Response: fmt.Sprintf("📊 Daily Summary (%s)\n\n", summary.Date) +
					"📦 No products in inventory yet.\n\n" +
					"Start by adding products:\n" +
					"• \"Bought 50 rice at 70\"\n" +
					"• \"Bought 20 cooking oil at 280\"",
				Data: summary,
			}
		}
		return &domain.CommandResult{
			Response: fmt.Sprintf("📊 Daily Summary (%s)\n\n", summary.Date) +
				"📭 No sales recorded today yet.\n\n" +
				"Record a sale by saying:\n" +
				"• \"Sold 5 rice at 85\"",
			Data: summary,
		}
	}

	msg := fmt.Sprintf("📊 Daily Summary (%s)\n\n", summary.Date)
	msg += fmt.Sprintf("💰 Total Sales: Rs.%.2f/-\n", summary.TotalSales)
	msg += fmt.Sprintf("📈 Total Profit: Rs.%.2f/-\n", summary.TotalProfit)
	msg += fmt.Sprintf("🛒 Items Sold: %s", num(summary.TotalUnitsSold))

	if summary.TopSeller != "" {
		msg += fmt.Sprintf("\n🏆 Top Seller: %s", summary.TopSeller)
	}
	if len(summary.LowStockItems) > 0 {
		msg += fmt.Sprintf("\n\n⚠️ Low Stock: %d items need reordering", len(summary.LowStockItems))
	}

	return &domain.CommandResult{Response: msg, Data: summary}
}

func (s *AssistantService) handleReorder(ctx context.Context, userID uuid.UUID) *domain.CommandResult {
	result, err := s.analytics.ReorderSuggestions(ctx, userID)
	if err != nil {
		return s.failure(err, "suggest reorder")
	}

	if result.NoProducts {
		return &domain.CommandResult{
			Response: "📦 Your inventory is empty!\n\n" +
				"To add products, record a purchase first:\n" +
				"• \"Bought 50 rice at 70\"\n" +
				"• \"Bought 20 oil at 280\"\n" +
				"• \"Bought 100 sugar at 90\"\n\n" +
				"This will add products to your inventory with stock.",
		}
	}
	if len(result.Items) == 0 {
		return &domain.CommandResult{Response: "✅ All items are well-stocked! No reordering needed."}
	}

	var b strings.Builder
	b.WriteString("⚠️ Items needing reorder:\n\n")
	for _, item := range result.Items {
		b.WriteString(fmt.Sprintf("• %s: %s left\n", item.Name, num(item.Stock)))
	}

	return &domain.CommandResult{Response: b.String(), Data: result.Items}
}

func (s *AssistantService) handlePriceQuery(ctx context.Context, userID uuid.UUID, e domain.Entities) *domain.CommandResult {
	if e.Product == "" {
		return &domain.CommandResult{Response: "Please specify the product name. Example: 'What price for rice?'"}
	}

	advice, err := s.analytics.RecommendPrice(ctx, userID, e.Product)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, analytics.ErrNoCostPrice) {
			return &domain.CommandResult{Response: fmt.Sprintf("Product '%s' not found in inventory.", e.Product)}
		}
		return s.failure(err, "recommend price")
	}

	return &domain.CommandResult{
		Response: fmt.Sprintf("💡 Price Recommendation for %s\n\nCost: Rs.%s/-\nRecommended: Rs.%s/- (%s margin)",
			advice.Product, num(advice.CostPrice), num(advice.RecommendedPrice), advice.Margin),
		Data: advice,
	}
}

func (s *AssistantService) handleGreeting(ctx context.Context, userID uuid.UUID) *domain.CommandResult {
	count, err := s.products.CountByUser(ctx, userID)
	if err != nil {
		return s.failure(err, "greet")
	}
	if count == 0 {
		return &domain.CommandResult{
			Response: "👋 Welcome! I see you're new here.\n\n" +
				"📦 **Getting Started:**\n\n" +
				"First, add your products by recording purchases:\n" +
				"• \"Bought 50 rice at 70\"\n" +
				"• \"Bought 20 cooking oil at 280\"\n" +
				"• \"Bought 100 sugar at 90\"\n\n" +
				"This will add products with stock to your inventory!",
		}
	}
	return &domain.CommandResult{
		Response: "👋 Hello! How can I help you today?\n\nI can help you with:\n• Recording sales and purchases\n• Creating invoices\n• Checking inventory\n• Daily summaries\n• Reorder suggestions",
	}
}

func (s *AssistantService) handleHelp() *domain.CommandResult {
	return &domain.CommandResult{
		Response: "📚 Here's what I can do:\n\n" +
			"**Sales:** \"Sold 5 rice at 80\"\n" +
			"**Purchases:** \"Bought 10 pens at 20\"\n" +
			"**Invoice:** \"Invoice for Ahmed: 3 rice at 80\"\n" +
			"**Inventory:** \"Show inventory\"\n" +
			"**Summary:** \"Today's summary\"\n" +
			"**Reorder:** \"What to reorder?\"\n" +
			"**Price:** \"What price for rice?\"",
	}
}

func (s *AssistantService) handleUnknown() *domain.CommandResult {
	return &domain.CommandResult{
		Response: "🤔 I didn't understand that. Try saying:\n\n" +
			"• \"Sold 5 items at 100\"\n" +
			"• \"Bought 10 pens at 20\"\n" +
			"• \"Show my inventory\"\n" +
			"• \"Today's summary\"\n\n" +
			"Type 'help' for more commands.",
	}
}

// failure logs the underlying error and renders the generic apology.
func (s *AssistantService) failure(err error, op string) *domain.CommandResult {
	s.logger.Error("Command execution failed", zap.String("operation", op), zap.Error(err))
	return &domain.CommandResult{Response: "Sorry, something went wrong. Please try again."}
}

// ListInventory returns the owner's full catalog.
func (s *AssistantService) ListInventory(ctx context.Context, userID uuid.UUID) ([]*domain.Product, error) {
	return s.products.ListByUser(ctx, userID)
}

// DailySummary returns today's sales projection.
func (s *AssistantService) DailySummary(ctx context.Context, userID uuid.UUID) (*domain.DailySummary, error) {
	return s.analytics.DailySummary(ctx, userID)
}

// ListInvoices returns the owner's invoices, newest first.
func (s *AssistantService) ListInvoices(ctx context.Context, userID uuid.UUID) ([]*domain.Invoice, error) {
	return s.invoices.ListByUser(ctx, userID)
}

// ReorderSuggestions returns products under the low-stock threshold.
func (s *AssistantService) ReorderSuggestions(ctx context.Context, userID uuid.UUID) (*domain.ReorderList, error) {
	return s.analytics.ReorderSuggestions(ctx, userID)
}

// LowStockNotifications returns out-of-stock and low-stock alerts.
func (s *AssistantService) LowStockNotifications(ctx context.Context, userID uuid.UUID) (*domain.StockNotifications, error) {
	return s.analytics.LowStockNotifications(ctx, userID)
}

// num renders a float the way a shopkeeper writes it: no trailing
// zeros, no exponent.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
