package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shoptalk/internal/domain"
	"shoptalk/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// mockStore is an in-memory Store with the same seed semantics as the
// Postgres implementation. Mutations are buffered per transaction and
// applied only on commit, so rollback behavior is observable.
type mockStore struct {
	products  map[string]*domain.Product
	sales     []*domain.Sale
	purchases []*domain.Purchase
	invoices  []*domain.Invoice

	failInsertSale    bool
	failInsertInvoice bool
}

func newMockStore() *mockStore {
	return &mockStore{products: make(map[string]*domain.Product)}
}

type mockTx struct {
	store *mockStore

	products  map[string]*domain.Product
	stocks    map[uuid.UUID]float64
	sales     []*domain.Sale
	purchases []*domain.Purchase
	invoices  []*domain.Invoice
}

func (s *mockStore) InTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	tx := &mockTx{
		store:    s,
		products: make(map[string]*domain.Product),
		stocks:   make(map[uuid.UUID]float64),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// commit
	for key, p := range tx.products {
		s.products[key] = p
	}
	for _, p := range s.products {
		if stock, ok := tx.stocks[p.ID]; ok {
			p.Stock = stock
		}
	}
	s.sales = append(s.sales, tx.sales...)
	s.purchases = append(s.purchases, tx.purchases...)
	s.invoices = append(s.invoices, tx.invoices...)
	return nil
}

func (t *mockTx) GetOrCreateProduct(ctx context.Context, userID uuid.UUID, name string, seed repository.ProductSeed) (*domain.Product, error) {
	normalized := domain.NormalizeName(name)
	key := userID.String() + "/" + normalized

	product, ok := t.products[key]
	if !ok {
		product, ok = t.store.products[key]
		if ok {
			clone := *product
			product = &clone
		}
	}

	if !ok {
		price := seed.Price
		if price <= 0 {
			price = seed.Cost
		}
		product = &domain.Product{
			ID:           uuid.New(),
			UserID:       userID,
			Name:         normalized,
			CostPrice:    seed.Cost,
			SellingPrice: price,
			Stock:        0,
		}
	} else if seed.Hint {
		if seed.Cost > 0 {
			product.CostPrice = seed.Cost
		}
		if seed.Price > 0 {
			product.SellingPrice = seed.Price
		}
	}

	t.products[key] = product
	return product, nil
}

func (t *mockTx) UpdateStock(ctx context.Context, productID uuid.UUID, stock float64) error {
	t.stocks[productID] = stock
	for _, p := range t.products {
		if p.ID == productID {
			p.Stock = stock
		}
	}
	return nil
}

func (t *mockTx) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if t.store.failInsertSale {
		return errors.New("insert sale failed")
	}
	t.sales = append(t.sales, sale)
	return nil
}

func (t *mockTx) InsertPurchase(ctx context.Context, purchase *domain.Purchase) error {
	t.purchases = append(t.purchases, purchase)
	return nil
}

func (t *mockTx) InsertInvoice(ctx context.Context, invoice *domain.Invoice) error {
	if t.store.failInsertInvoice {
		return errors.New("insert invoice failed")
	}
	t.invoices = append(t.invoices, invoice)
	return nil
}

func newTestEngine(store *mockStore) *Engine {
	return NewEngine(store, zap.NewNop())
}

func (s *mockStore) product(userID uuid.UUID, name string) *domain.Product {
	return s.products[userID.String()+"/"+domain.NormalizeName(name)]
}

func TestRecordSale_NewProduct(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	result, err := engine.RecordSale(context.Background(), userID, "Rice", 5, 80, 0)
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if result.Product != "rice" {
		t.Errorf("product = %q, want normalized %q", result.Product, "rice")
	}
	if result.Total != 400 {
		t.Errorf("total = %v, want 400", result.Total)
	}
	if result.RemainingStock != 0 {
		t.Errorf("remaining stock = %v, want 0 (clamped)", result.RemainingStock)
	}
	if result.Alert != domain.AlertOutOfStock {
		t.Errorf("alert = %q, want %q", result.Alert, domain.AlertOutOfStock)
	}
	if len(store.sales) != 1 {
		t.Fatalf("sales recorded = %d, want 1", len(store.sales))
	}
}

func TestRecordSale_ClampsStockAtZero(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "rice", 3, 70); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	result, err := engine.RecordSale(context.Background(), userID, "rice", 5, 80, 0)
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if result.RemainingStock != 0 {
		t.Errorf("remaining stock = %v, want 0", result.RemainingStock)
	}
	if result.Alert != domain.AlertOutOfStock {
		t.Errorf("alert = %q, want %q", result.Alert, domain.AlertOutOfStock)
	}
	if got := store.product(userID, "rice").Stock; got != 0 {
		t.Errorf("stored stock = %v, want 0", got)
	}
	// The sale row still records the full requested quantity.
	if store.sales[0].Quantity != 5 {
		t.Errorf("sale quantity = %v, want 5", store.sales[0].Quantity)
	}
}

func TestRecordSale_LowStockAlert(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "rice", 12, 70); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	result, err := engine.RecordSale(context.Background(), userID, "rice", 5, 80, 0)
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if result.RemainingStock != 7 {
		t.Errorf("remaining stock = %v, want 7", result.RemainingStock)
	}
	if result.Alert != domain.AlertLowStock {
		t.Errorf("alert = %q, want %q", result.Alert, domain.AlertLowStock)
	}
}

func TestRecordSale_SnapshotsCostPrice(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "rice", 20, 70); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	if _, err := engine.RecordSale(context.Background(), userID, "rice", 5, 80, 0); err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if got := store.sales[0].CostPrice; got != 70 {
		t.Errorf("sale cost snapshot = %v, want 70", got)
	}
}

func TestRecordSale_UpdatesSellingPrice(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordSale(context.Background(), userID, "rice", 1, 80, 0); err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}
	if _, err := engine.RecordSale(context.Background(), userID, "rice", 1, 85, 0); err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	// Most recent sale price wins.
	if got := store.product(userID, "rice").SellingPrice; got != 85 {
		t.Errorf("selling price = %v, want 85", got)
	}
}

func TestRecordSale_Validation(t *testing.T) {
	engine := newTestEngine(newMockStore())
	userID := uuid.New()

	if _, err := engine.RecordSale(context.Background(), userID, "rice", 0, 80, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity error = %v, want ErrInvalidQuantity", err)
	}
	if _, err := engine.RecordSale(context.Background(), userID, "rice", -1, 80, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative quantity error = %v, want ErrInvalidQuantity", err)
	}
	if _, err := engine.RecordSale(context.Background(), userID, "rice", 5, 0, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero price error = %v, want ErrInvalidPrice", err)
	}
}

func TestRecordPurchase_IncrementsStock(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	first, err := engine.RecordPurchase(context.Background(), userID, "Cooking Oil", 10, 280)
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	if !first.IsNewProduct {
		t.Error("first purchase should flag a new product")
	}
	if first.NewStock != 10 {
		t.Errorf("new stock = %v, want 10", first.NewStock)
	}
	if first.Total != 2800 {
		t.Errorf("total = %v, want 2800", first.Total)
	}

	second, err := engine.RecordPurchase(context.Background(), userID, "cooking oil", 5, 290)
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	if second.IsNewProduct {
		t.Error("restock should not flag a new product")
	}
	if second.NewStock != 15 {
		t.Errorf("new stock = %v, want 15", second.NewStock)
	}

	// Most recent purchase cost wins.
	if got := store.product(userID, "cooking oil").CostPrice; got != 290 {
		t.Errorf("cost price = %v, want 290", got)
	}
}

func TestCreateInvoice_TotalsAndSales(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	items := []domain.InvoiceItem{
		{Name: "rice", Quantity: 5, Price: 80},
		{Name: "oil", Quantity: 2, Price: 150},
	}

	result, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", items)
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	if result.Total != 700 {
		t.Errorf("total = %v, want 700", result.Total)
	}
	if !strings.HasPrefix(result.Number, "INV-") {
		t.Errorf("invoice number = %q, want INV- prefix", result.Number)
	}
	if result.CustomerName != "Ahmed" {
		t.Errorf("customer = %q, want %q", result.CustomerName, "Ahmed")
	}
	if len(store.invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(store.invoices))
	}
	if len(store.sales) != 2 {
		t.Fatalf("sales = %d, want one per line item", len(store.sales))
	}
}

func TestCreateInvoice_SeedsNewProductCost(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	_, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", []domain.InvoiceItem{
		{Name: "rice", Quantity: 5, Price: 100},
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	p := store.product(userID, "rice")
	if p == nil {
		t.Fatal("product was not created")
	}
	if p.CostPrice != 70 {
		t.Errorf("seeded cost = %v, want 70 (0.7 x price)", p.CostPrice)
	}
	if p.SellingPrice != 100 {
		t.Errorf("seeded selling price = %v, want 100", p.SellingPrice)
	}
}

func TestCreateInvoice_DoesNotOverwriteExistingPrices(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "rice", 20, 70); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	_, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", []domain.InvoiceItem{
		{Name: "rice", Quantity: 2, Price: 95},
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	if got := store.product(userID, "rice").CostPrice; got != 70 {
		t.Errorf("cost price = %v, want untouched 70", got)
	}
}

func TestCreateInvoice_LowStockWarnings(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "rice", 8, 70); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	result, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", []domain.InvoiceItem{
		{Name: "rice", Quantity: 5, Price: 80},
		{Name: "oil", Quantity: 2, Price: 150},
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	want := []string{"rice (3 left)", "oil (OUT OF STOCK)"}
	if len(result.Warnings) != len(want) {
		t.Fatalf("warnings = %v, want %v", result.Warnings, want)
	}
	for i := range want {
		if result.Warnings[i] != want[i] {
			t.Errorf("warning[%d] = %q, want %q", i, result.Warnings[i], want[i])
		}
	}
}

func TestCreateInvoice_AtomicRollback(t *testing.T) {
	store := newMockStore()
	store.failInsertSale = true
	engine := newTestEngine(store)
	userID := uuid.New()

	_, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", []domain.InvoiceItem{
		{Name: "rice", Quantity: 5, Price: 80},
	})
	if err == nil {
		t.Fatal("CreateInvoice() error = nil, want an error")
	}

	if len(store.invoices) != 0 {
		t.Errorf("invoices = %d, want 0 after rollback", len(store.invoices))
	}
	if len(store.sales) != 0 {
		t.Errorf("sales = %d, want 0 after rollback", len(store.sales))
	}
	if store.product(userID, "rice") != nil {
		t.Error("product creation survived the rollback")
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	engine := newTestEngine(newMockStore())
	userID := uuid.New()

	if _, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", nil); !errors.Is(err, ErrNoInvoiceItems) {
		t.Errorf("empty items error = %v, want ErrNoInvoiceItems", err)
	}

	_, err := engine.CreateInvoice(context.Background(), userID, "Ahmed", []domain.InvoiceItem{
		{Name: "rice", Quantity: 0, Price: 80},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity error = %v, want ErrInvalidQuantity", err)
	}
}

func TestStockNeverGoesNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any interleaving of purchases and sales keeps stock >= 0", prop.ForAll(
		func(ops []int8) bool {
			store := newMockStore()
			engine := newTestEngine(store)
			userID := uuid.New()
			ctx := context.Background()

			for _, op := range ops {
				qty := float64(op%10) + 1
				if op%2 == 0 {
					if _, err := engine.RecordPurchase(ctx, userID, "rice", qty, 70); err != nil {
						return false
					}
				} else {
					if _, err := engine.RecordSale(ctx, userID, "rice", qty, 80, 0); err != nil {
						return false
					}
				}
				if p := store.product(userID, "rice"); p != nil && p.Stock < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int8Range(0, 127)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPurchaseThenEqualSaleRoundTripsToZero(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)
	userID := uuid.New()

	if _, err := engine.RecordPurchase(context.Background(), userID, "sugar", 10, 90); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	result, err := engine.RecordSale(context.Background(), userID, "sugar", 10, 100, 0)
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if result.RemainingStock != 0 {
		t.Errorf("remaining stock = %v, want 0", result.RemainingStock)
	}
	if got := store.product(userID, "sugar").Stock; got != 0 {
		t.Errorf("stored stock = %v, want 0", got)
	}
}
