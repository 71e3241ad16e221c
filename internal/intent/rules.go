// Package intent is the deterministic text-to-intent classifier. It is
// pure: identical input always yields identical output, and Classify
// never fails; unmatched input yields IntentUnknown.
package intent

import (
	"regexp"
	"strings"

	"shoptalk/internal/domain"
)

// extractor turns regexp submatches into entities. Returning false
// means the rule does not apply after all (e.g. an invoice clause with
// no recognizable items) and classification moves to the next rule.
type extractor func(m []string) (domain.Entities, bool)

// rule pairs a pattern with its intent and entity extractor. Rules are
// tried strictly in table order; the first rule whose pattern matches
// and whose extractor succeeds wins.
type rule struct {
	intent  domain.Intent
	pattern *regexp.Regexp
	extract extractor
}

const (
	numberToken = `(\d+(?:\.\d+)?)`
	unitToken   = `(?:kgs?|pieces?|pcs?|units?)?`
	priceMarker = `(?:\bat\b|@|\bfor\b)`
	currency    = `(?:rs\.?|₹)?`
)

var (
	reGreeting = regexp.MustCompile(`^(?:hi|hello|hey|good morning|good evening)\b`)
	reHelp     = regexp.MustCompile(`^(?:help\b|what can you do|commands\b)`)

	// "sold 5 kg rice at 80" / "sell 2.5 of sugar for rs. 90"
	reSale = regexp.MustCompile(
		`\b(?:sold|sell)\s+` + numberToken + `\s*` + unitToken + `\s*(?:of\s+)?(.+?)\s*` +
			priceMarker + `\s*` + currency + `\s*` + numberToken)

	// "5 rice sold at 80"
	reSaleTrailing = regexp.MustCompile(
		numberToken + `\s*` + unitToken + `\s*(?:of\s+)?(.+?)\s+sold\s*` +
			priceMarker + `\s*` + currency + `\s*` + numberToken)

	// "bought 10 cooking oil at 280" / "restocked 20 pcs of soap for 45"
	rePurchase = regexp.MustCompile(
		`\b(?:bought|purchased?|restocked?|got)\s+` + numberToken + `\s*` + unitToken +
			`\s*(?:of\s+)?(.+?)\s*` + priceMarker + `\s*` + currency + `\s*` + numberToken)

	// "invoice for ahmed: 5 rice at 80, 2 oil at 150"
	reInvoice = regexp.MustCompile(`\binvoice\s+(?:for\s+)?(\w+)(?:\s*:\s*|\s+)(.+)`)

	// item groups inside the invoice clause
	reInvoiceItem = regexp.MustCompile(
		numberToken + `\s*` + unitToken + `\s*(.+?)\s*(?:\bat\b|@)\s*` + currency + `\s*` + numberToken)

	reInventory = regexp.MustCompile(`(?:show|list|view|check|my)\s*(?:inventory|products?|stock|items)`)
	reSummary   = regexp.MustCompile(`(?:summary|total|report|sales|today|daily)`)
	reReorder   = regexp.MustCompile(`(?:reorder|restock|low stock|what.*order|need.*buy)`)

	// "what price for rice" / "suggest a price for sugar"
	rePrice = regexp.MustCompile(`(?:what|suggest).*?price(?:.*?\bfor\b)?\s+([a-z][\w ]*)`)
)

// rules is the classifier, in priority order. Conversational intents
// come first, then mutating commands, then read-only queries. The
// summary pattern is deliberately broad, so it must stay behind the
// sale and purchase rules.
var rules = []rule{
	{domain.IntentGreeting, reGreeting, nil},
	{domain.IntentHelp, reHelp, nil},
	{domain.IntentRecordSale, reSale, extractTrade},
	{domain.IntentRecordSale, reSaleTrailing, extractTrade},
	{domain.IntentRecordPurchase, rePurchase, extractTrade},
	{domain.IntentCreateInvoice, reInvoice, extractInvoice},
	{domain.IntentShowInventory, reInventory, nil},
	{domain.IntentShowSummary, reSummary, nil},
	{domain.IntentSuggestReorder, reReorder, nil},
	{domain.IntentRecommendPrice, rePrice, extractPriceQuery},
}

// Classify maps free text to an intent and its entities. Matching is
// case-insensitive; first match wins.
func Classify(text string) domain.ParsedCommand {
	msg := strings.ToLower(strings.TrimSpace(text))

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if r.extract == nil {
			return domain.ParsedCommand{Intent: r.intent}
		}
		if entities, ok := r.extract(m); ok {
			return domain.ParsedCommand{Intent: r.intent, Entities: entities}
		}
	}

	return domain.ParsedCommand{Intent: domain.IntentUnknown}
}
