package nlu

import (
	"regexp"
	"strings"
)

// Intent patterns, tested in fixed priority order. Balance and collection
// checks are cheap, unambiguous signals and run before the broader send-money
// verbs so "cobrar 300" is never read as a transfer.
var (
	balanceRe    = regexp.MustCompile(`\b(saldo|balance|disponible|mi saldo|cuanto tengo)\b`)
	collectRe    = regexp.MustCompile(`\b(cobrar|generar\s*qr|mi\s*qr|compartir\s*qr|codi|qr\s*codi|código\s*codi)\b`)
	addContactRe = regexp.MustCompile(`\b(agregar|añadir|nuevo)\s+contacto\b`)
	contactRe    = regexp.MustCompile(`contacto\s+(?:a\s+)?(.+)`)
	linkDimoRe   = regexp.MustCompile(`\b(vincular|enlazar|activar)\s+dimo\b`)
	sendRe       = regexp.MustCompile(`\b(enviar|envia|envía|envíar|transferir|transferencia)\b`)
	helpRe       = regexp.MustCompile(`\b(ayuda|help|qué puedes hacer|como te uso)\b`)
)

// Classify interprets an utterance with ordered pattern matching, first match
// wins. This is the fallback path when no remote model is configured or the
// remote call fails.
func Classify(text string) Result {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Unknown()
	}

	if balanceRe.MatchString(t) {
		return Result{Intent: IntentCheckBalance}
	}

	if collectRe.MatchString(t) {
		res := Result{Intent: IntentCollect, Concept: extractCollectConcept(t)}
		if n, ok := ParseAmount(t); ok {
			res.Amount = Number(n)
		}
		return res
	}

	if addContactRe.MatchString(t) {
		res := Result{Intent: IntentAddContact}
		if m := contactRe.FindStringSubmatch(t); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				res.Recipient = String(titleCase(name))
			}
		}
		return res
	}

	if linkDimoRe.MatchString(t) {
		return Result{Intent: IntentLinkDimo, Concept: String("dimo")}
	}

	if sendRe.MatchString(t) {
		res := Result{
			Intent:    IntentSendMoney,
			Recipient: extractRecipient(t),
			Concept:   extractConcept(t),
		}
		if n, ok := ParseAmount(t); ok {
			res.Amount = Number(n)
		}
		return res
	}

	if helpRe.MatchString(t) {
		return Result{Intent: IntentHelp}
	}

	return Unknown()
}
