package intent

import (
	"strconv"
	"strings"

	"shoptalk/internal/domain"
)

// unitWords are measure words that carry no product identity. They are
// stripped from the tail of an extracted product phrase.
var unitWords = map[string]bool{
	"kg": true, "kgs": true,
	"piece": true, "pieces": true,
	"pc": true, "pcs": true,
	"unit": true, "units": true,
	"each": true, "per": true,
}

// cleanProduct strips trailing unit words and normalizes the phrase.
func cleanProduct(raw string) string {
	words := strings.Fields(raw)
	for len(words) > 0 && unitWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return domain.NormalizeName(strings.Join(words, " "))
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractTrade handles both sale and purchase shapes; they share the
// quantity / product / price group layout and differ only by verb.
func extractTrade(m []string) (domain.Entities, bool) {
	quantity, ok := parseNumber(m[1])
	if !ok {
		return domain.Entities{}, false
	}
	price, ok := parseNumber(m[3])
	if !ok {
		return domain.Entities{}, false
	}
	product := cleanProduct(m[2])
	if product == "" {
		return domain.Entities{}, false
	}

	return domain.Entities{
		Product:  product,
		Quantity: quantity,
		Price:    price,
	}, true
}

// extractInvoice pulls the customer token and re-scans the trailing
// clause for comma-or-whitespace-separated "qty name at price" groups.
// Clauses that don't match the shape are skipped; an invoice with zero
// recognized items is a parse failure, not a valid empty invoice.
func extractInvoice(m []string) (domain.Entities, bool) {
	customer := strings.TrimSpace(m[1])

	var items []domain.InvoiceItem
	for _, clause := range strings.Split(m[2], ",") {
		for _, im := range reInvoiceItem.FindAllStringSubmatch(clause, -1) {
			quantity, ok := parseNumber(im[1])
			if !ok {
				continue
			}
			price, ok := parseNumber(im[3])
			if !ok {
				continue
			}
			name := cleanProduct(im[2])
			if name == "" {
				continue
			}
			items = append(items, domain.InvoiceItem{
				Name:     name,
				Quantity: quantity,
				Price:    price,
			})
		}
	}

	if len(items) == 0 {
		return domain.Entities{}, false
	}

	return domain.Entities{Customer: customer, Items: items}, true
}

func extractPriceQuery(m []string) (domain.Entities, bool) {
	product := cleanProduct(m[1])
	if product == "" {
		return domain.Entities{}, false
	}
	return domain.Entities{Product: product}, true
}
