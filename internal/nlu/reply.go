package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rcastellanos/tavi/internal/payments"
)

// maxReplyRunes caps the remote acknowledgement; the model occasionally
// ignores the one-sentence instruction.
const maxReplyRunes = 200

// ReplyInput carries the context for one acknowledgement sentence.
type ReplyInput struct {
	UserText string
	Result   Result
	Balance  float64
}

// Replier produces a short natural-language acknowledgement for an
// interpreted result: a remote model call when configured, a fixed per-intent
// template otherwise and on any failure.
type Replier struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewReplier creates a reply generator from cfg, filling defaults.
func NewReplier(cfg Config) *Replier {
	return &Replier{
		apiKey:     cfg.APIKey,
		model:      modelOrDefault(cfg.Model),
		baseURL:    geminiAPIBase,
		httpClient: clientOrDefault(cfg.HTTPClient),
	}
}

// Generate returns one acknowledgement sentence. The template fallback is
// computed first and returned on any remote failure; remote successes are
// clipped to their first line and a fixed maximum length.
func (r *Replier) Generate(ctx context.Context, in ReplyInput) string {
	base := FallbackReply(in.Result, in.Balance)
	if r.apiKey == "" {
		return base
	}

	resultJSON, err := json.Marshal(in.Result)
	if err != nil {
		return base
	}

	userText := in.UserText
	if userText == "" {
		userText = "(no disponible)"
	}

	req := generateRequest{
		SystemInstruction: &geminiContent{
			Role:  "system",
			Parts: []geminiPart{{Text: ReplyInstruction}},
		},
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{Text: "Mensaje del usuario: " + userText},
					{Text: "Resultado NLU: " + string(resultJSON)},
					{Text: fmt.Sprintf("Saldo aproximado: %.2f", in.Balance)},
					{Text: replyExamples},
				},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopP:            0.9,
			MaxOutputTokens: 60,
		},
	}

	out, err := callGemini(ctx, r.httpClient, r.baseURL, r.model, r.apiKey, req)
	if err != nil {
		return base
	}
	return clipReply(out, base)
}

// clipReply enforces the single short sentence contract on remote output.
func clipReply(out, fallback string) string {
	line := strings.TrimSpace(out)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return fallback
	}
	runes := []rune(line)
	if len(runes) > maxReplyRunes {
		line = string(runes[:maxReplyRunes])
	}
	return line
}

// FallbackReply is the deterministic template per intent.
func FallbackReply(res Result, balance float64) string {
	switch res.Intent {
	case IntentCheckBalance:
		return "Claro, con gusto le muestro su saldo."
	case IntentCollect:
		return "Claro, con gusto le ayudo a generar un QR de cobro. Aquí tiene:"
	case IntentShareQR:
		return "Claro, aquí tiene su QR para compartir:"
	case IntentSendMoney:
		var sb strings.Builder
		sb.WriteString("Claro, le ayudo a transferir")
		if res.Amount != nil && *res.Amount > 0 {
			sb.WriteString(" " + payments.Currency(*res.Amount))
		}
		who := "el destinatario"
		if res.Recipient != nil {
			who = *res.Recipient
		}
		sb.WriteString(" a " + who)
		if res.Concept != nil {
			sb.WriteString(" por " + *res.Concept)
		}
		sb.WriteString(".")
		return sb.String()
	case IntentAddContact:
		return "Claro, vamos a agregar un nuevo contacto."
	case IntentHelp:
		return "Con gusto. Puedo ayudarle con lo siguiente:"
	case IntentLinkDimo:
		return "De acuerdo, puedo ayudarle a vincular Dimo® y enviar a contactos."
	default:
		return "No entendí. Puede intentar: 'transferir 200 a Ana' o 'mi saldo'."
	}
}
