package domain

// Intent is the classified purpose of a chat message.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentHelp           Intent = "help"
	IntentRecordSale     Intent = "record_sale"
	IntentRecordPurchase Intent = "record_purchase"
	IntentCreateInvoice  Intent = "create_invoice"
	IntentShowInventory  Intent = "show_inventory"
	IntentShowSummary    Intent = "show_summary"
	IntentSuggestReorder Intent = "suggest_reorder"
	IntentRecommendPrice Intent = "recommend_price"
	IntentUnknown        Intent = "unknown"
)

// ParseIntent maps an intent tag to the closed taxonomy. Anything
// outside the taxonomy is IntentUnknown.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentGreeting, IntentHelp, IntentRecordSale, IntentRecordPurchase,
		IntentCreateInvoice, IntentShowInventory, IntentShowSummary,
		IntentSuggestReorder, IntentRecommendPrice:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// InvoiceItem is a single invoice line: name, quantity and unit price.
type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Entities holds the structured parameters extracted from a message.
// Fields not relevant to the intent stay at their zero value.
type Entities struct {
	Product  string        `json:"product,omitempty"`
	Quantity float64       `json:"quantity,omitempty"`
	Price    float64       `json:"price,omitempty"`
	Customer string        `json:"customer,omitempty"`
	Items    []InvoiceItem `json:"items,omitempty"`
}

// ParsedCommand is the transient result of interpreting a message. It
// is never persisted.
type ParsedCommand struct {
	Intent   Intent   `json:"intent"`
	Entities Entities `json:"entities"`
}

// CommandResult is what the assistant returns for every message: a
// non-empty human-readable response and, when applicable, the
// machine-readable result of the executed operation.
type CommandResult struct {
	Response string `json:"response"`
	Data     any    `json:"data,omitempty"`
}
