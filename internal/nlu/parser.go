package nlu

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// "2 mil" / "3k" shorthand, checked before plain numbers.
	magnitudeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mil|k)\b`)
	numberRe    = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	// Recipient after "a" or "para", accented alphabetic run.
	recipientRe = regexp.MustCompile(`\b(?:a|para)\s+([a-záéíóúñ\s.'\-]+)`)

	// Concept after "por" for transfers; for collections the trailing
	// non-numeric clause also counts.
	conceptRe         = regexp.MustCompile(`\bpor\s+([^,.;]+)`)
	collectConceptRe  = regexp.MustCompile(`por\s+([^\d]+)$`)
	collectConcept2Re = regexp.MustCompile(`concepto\s+([^.]+)`)
	trailingClauseRe  = regexp.MustCompile(`\d[\d.,]*\s+([^\d]+)$`)
)

// ParseAmount extracts a monetary quantity from free text. Supports plain
// decimals, thousands separators (commas stripped), and the "mil"/"k"
// magnitude suffixes. The first numeric-looking substring wins. Returns false
// when no numeric token is found or the value is not finite.
func ParseAmount(text string) (float64, bool) {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	if m := magnitudeRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil && isFinite(n) {
			return math.Round(n * 1000), true
		}
	}
	if m := numberRe.FindString(s); m != "" {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err == nil && isFinite(n) {
			return n, true
		}
	}
	return 0, false
}

func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// extractRecipient pulls a display name following "a"/"para" from lowercased
// text. The capture is cut before a trailing "por ..." concept clause so that
// "envía 200 a ana por renta" yields "Ana", then title-cased.
func extractRecipient(t string) *string {
	m := recipientRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	rec := m[1]
	if i := strings.Index(rec, " por "); i >= 0 {
		rec = rec[:i]
	}
	rec = strings.TrimSpace(rec)
	if rec == "" {
		return nil
	}
	return String(titleCase(rec))
}

// extractConcept pulls the free-text memo following "por" in a transfer
// utterance. Trimmed, never title-cased.
func extractConcept(t string) *string {
	m := conceptRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	c := strings.TrimSpace(m[1])
	if c == "" {
		return nil
	}
	return String(c)
}

// extractCollectConcept pulls the memo of a collection request: a trailing
// "por ..." clause, an explicit "concepto ...", or the trailing non-numeric
// clause after the amount ("cobrar 300 tacos" -> "tacos").
func extractCollectConcept(t string) *string {
	for _, re := range []*regexp.Regexp{collectConceptRe, collectConcept2Re, trailingClauseRe} {
		if m := re.FindStringSubmatch(t); m != nil {
			if c := strings.TrimSpace(m[1]); c != "" {
				return String(c)
			}
		}
	}
	return nil
}

// titleCase capitalizes the first rune of each whitespace-delimited token.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
