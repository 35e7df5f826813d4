// Package nlu interprets Spanish banking commands: a Gemini call when an API
// key is configured, with a deterministic regex fallback that always produces
// a structured result.
package nlu

import (
	"math"
	"strings"
)

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentSendMoney    Intent = "send_money"
	IntentCheckBalance Intent = "check_balance"
	IntentCollect      Intent = "collect"
	IntentShareQR      Intent = "share_qr"
	IntentAddContact   Intent = "add_contact"
	IntentHelp         Intent = "help"
	IntentLinkDimo     Intent = "link_dimo"
	IntentUnknown      Intent = "unknown"
)

// ParseIntent validates a raw intent string against the known set.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentSendMoney, IntentCheckBalance, IntentCollect, IntentShareQR,
		IntentAddContact, IntentHelp, IntentLinkDimo:
		return Intent(s), true
	}
	return IntentUnknown, false
}

// Result is the structured interpretation of one utterance. Optional slots
// are nil when absent or invalid.
type Result struct {
	Intent    Intent   `json:"intent"`
	Recipient *string  `json:"recipient"`
	Amount    *float64 `json:"amount"`
	Concept   *string  `json:"concept"`
}

// Unknown returns the default/error-case result.
func Unknown() Result {
	return Result{Intent: IntentUnknown}
}

// String returns a pointer to s, for building results with optional slots.
func String(s string) *string { return &s }

// Number returns a pointer to n, for building results with optional slots.
func Number(n float64) *float64 { return &n }

// Normalize coerces an untyped JSON object (as returned by the remote model)
// into a Result. The intent is whitelisted against the known set, amounts pass
// through only when they are already numeric and finite, and recipient/concept
// only when they are non-empty strings after trimming. The remote source is
// not schema-guaranteed, so this runs on every remote parse.
func Normalize(raw map[string]any) Result {
	res := Unknown()

	if s, ok := raw["intent"].(string); ok {
		if intent, ok := ParseIntent(s); ok {
			res.Intent = intent
		}
	}
	if n, ok := raw["amount"].(float64); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		res.Amount = Number(n)
	}
	if s, ok := raw["recipient"].(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			res.Recipient = String(s)
		}
	}
	if s, ok := raw["concept"].(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			res.Concept = String(s)
		}
	}
	return res
}
