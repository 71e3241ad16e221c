// Package nlu talks to an optional external intent parser (any
// OpenAI-compatible chat completions endpoint, e.g. Groq). The client
// is explicitly constructed and injected; callers treat every failure
// as "no result" and fall back to the pattern engine.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shoptalk/internal/config"
	"shoptalk/internal/domain"

	"go.uber.org/zap"
)

var (
	ErrEmptyCompletion = errors.New("completion contained no choices")
	ErrNoJSONObject    = errors.New("completion contained no JSON object")
)

const systemPrompt = `You are an intent parser for a shopkeeper assistant.
Extract the intent and entities from the user message.

Available intents:
- record_sale: User sold something (entities: product, quantity, price)
- record_purchase: User bought/restocked something (entities: product, quantity, price)
- create_invoice: Create invoice (entities: customer, items[{name, quantity, price}])
- show_inventory: Show inventory list
- show_summary: Show daily summary
- suggest_reorder: Show items to reorder
- recommend_price: Get price recommendation (entities: product)
- greeting: Hello/hi messages
- help: Help request
- unknown: Cannot understand

Respond ONLY with valid JSON like:
{"intent": "record_sale", "entities": {"product": "rice", "quantity": 5, "price": 80}}

Parse this message:`

// jsonObject grabs the first JSON object embedded in completion text;
// models occasionally wrap the payload in prose or code fences.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Client calls the external parser with a hard timeout. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// New builds a client from configuration. The timeout applies to the
// whole call, connection included.
func New(cfg config.NLUConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireCommand is the parser's JSON schema. Entity values arrive loosely
// typed (numbers as strings, items as embedded JSON), so they are
// coerced after decoding.
type wireCommand struct {
	Intent   string                     `json:"intent"`
	Entities map[string]json.RawMessage `json:"entities"`
}

// Parse classifies a message through the external endpoint. Any error
// means "no usable result"; the caller must not treat it as fatal.
func (c *Client) Parse(ctx context.Context, message string) (*domain.ParsedCommand, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion request returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	raw := jsonObject.FindString(completion.Choices[0].Message.Content)
	if raw == "" {
		return nil, ErrNoJSONObject
	}

	var wire wireCommand
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode intent payload: %w", err)
	}

	cmd := &domain.ParsedCommand{
		Intent:   domain.ParseIntent(wire.Intent),
		Entities: coerceEntities(wire.Entities),
	}

	c.logger.Debug("NLU parsed message",
		zap.String("intent", string(cmd.Intent)),
	)

	return cmd, nil
}

// coerceEntities tolerates the loose typing of model output.
func coerceEntities(raw map[string]json.RawMessage) domain.Entities {
	entities := domain.Entities{}
	if raw == nil {
		return entities
	}

	if v, ok := raw["product"]; ok {
		entities.Product = domain.NormalizeName(asString(v))
	}
	if v, ok := raw["customer"]; ok {
		entities.Customer = strings.TrimSpace(asString(v))
	}
	if v, ok := raw["quantity"]; ok {
		entities.Quantity = asFloat(v)
	}
	if v, ok := raw["price"]; ok {
		entities.Price = asFloat(v)
	}
	if v, ok := raw["items"]; ok {
		entities.Items = asItems(v)
	}

	return entities
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

func asFloat(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// asItems accepts either a JSON array or a JSON-encoded string holding
// one, which some models emit.
func asItems(raw json.RawMessage) []domain.InvoiceItem {
	var items []domain.InvoiceItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return normalizeItems(items)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return normalizeItems(items)
		}
	}
	return nil
}

func normalizeItems(items []domain.InvoiceItem) []domain.InvoiceItem {
	out := items[:0]
	for _, item := range items {
		item.Name = domain.NormalizeName(item.Name)
		if item.Name == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
