package nlu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shoptalk/internal/config"
	"shoptalk/internal/domain"

	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return New(config.NLUConfig{
		BaseURL:        url,
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 2,
	}, zap.NewNop())
}

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestParse_WellFormedCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(completionResponse(`{"intent": "record_sale", "entities": {"product": "Rice", "quantity": 5, "price": 80}}`)))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).Parse(context.Background(), "sold 5 rice at 80")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Intent != domain.IntentRecordSale {
		t.Errorf("intent = %q, want %q", cmd.Intent, domain.IntentRecordSale)
	}
	if cmd.Entities.Product != "rice" {
		t.Errorf("product = %q, want normalized %q", cmd.Entities.Product, "rice")
	}
	if cmd.Entities.Quantity != 5 || cmd.Entities.Price != 80 {
		t.Errorf("quantity/price = %v/%v, want 5/80", cmd.Entities.Quantity, cmd.Entities.Price)
	}
}

func TestParse_CoercesStringNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(`{"intent": "record_purchase", "entities": {"product": "oil", "quantity": "10", "price": "280.5"}}`)))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).Parse(context.Background(), "bought 10 oil at 280.5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Entities.Quantity != 10 || cmd.Entities.Price != 280.5 {
		t.Errorf("quantity/price = %v/%v, want 10/280.5", cmd.Entities.Quantity, cmd.Entities.Price)
	}
}

func TestParse_ItemsAsEmbeddedJSONString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(
			`{"intent": "create_invoice", "entities": {"customer": "Ahmed", "items": "[{\"name\": \"Rice\", \"quantity\": 5, \"price\": 80}]"}}`)))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).Parse(context.Background(), "invoice for ahmed")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Intent != domain.IntentCreateInvoice {
		t.Errorf("intent = %q", cmd.Intent)
	}
	if cmd.Entities.Customer != "Ahmed" {
		t.Errorf("customer = %q, want %q", cmd.Entities.Customer, "Ahmed")
	}
	if len(cmd.Entities.Items) != 1 || cmd.Entities.Items[0].Name != "rice" {
		t.Errorf("items = %+v, want one normalized rice item", cmd.Entities.Items)
	}
}

func TestParse_JSONWrappedInProse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(
			"Sure! Here is the parsed intent:\n```json\n{\"intent\": \"show_inventory\", \"entities\": {}}\n```")))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).Parse(context.Background(), "show inventory")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Intent != domain.IntentShowInventory {
		t.Errorf("intent = %q, want %q", cmd.Intent, domain.IntentShowInventory)
	}
}

func TestParse_OutOfTaxonomyIntentBecomesUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(`{"intent": "make_coffee", "entities": {}}`)))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).Parse(context.Background(), "make me a coffee")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Intent != domain.IntentUnknown {
		t.Errorf("intent = %q, want %q", cmd.Intent, domain.IntentUnknown)
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}},
		{"no json object in content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completionResponse("I could not parse that message.")))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := newTestClient(srv.URL).Parse(context.Background(), "anything"); err == nil {
				t.Fatal("Parse() error = nil, want an error")
			}
		})
	}
}

func TestParse_UnreachableEndpoint(t *testing.T) {
	if _, err := newTestClient("http://127.0.0.1:1").Parse(context.Background(), "anything"); err == nil {
		t.Fatal("Parse() error = nil, want an error")
	}
}
