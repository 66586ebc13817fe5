package service

import (
	"strings"

	"github.com/ivlasov/envelope/internal/models"
)

// normalizeCategory lower-cases a category label and replaces underscores
// with spaces, absorbing vocabulary differences between the feed's taxonomy
// and user-defined rule labels ("FOOD_AND_DRINK" vs "food and drink").
func normalizeCategory(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

// MatchEnvelope evaluates rules in order against a transaction's category
// and merchant text and returns the envelope id of the first matching rule.
//
// A category condition matches when either normalized string contains the
// other. A merchant condition matches when the rule pattern is a
// case-insensitive substring of the merchant name, falling back to the
// description when the merchant name is empty. A rule carrying both
// conditions matches when either one does. First match wins; there is no
// scoring or specificity ranking.
func MatchEnvelope(rules []models.EnvelopeRule, category, merchant, description string) (string, bool) {
	cat := normalizeCategory(category)

	text := merchant
	if text == "" {
		text = description
	}
	text = strings.ToLower(text)

	for _, r := range rules {
		if r.Category != nil && cat != "" {
			rc := normalizeCategory(*r.Category)
			if rc != "" && (strings.Contains(cat, rc) || strings.Contains(rc, cat)) {
				return r.EnvelopeID, true
			}
		}
		if r.MerchantPattern != nil && text != "" {
			p := strings.ToLower(*r.MerchantPattern)
			if p != "" && strings.Contains(text, p) {
				return r.EnvelopeID, true
			}
		}
	}
	return "", false
}
