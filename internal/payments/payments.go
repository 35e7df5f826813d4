// Package payments holds the money-shaped helpers shared by the dialogue
// controller and the API surface: currency formatting, mock tracking keys,
// collection payloads, and receipt text.
package payments

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Currency formats n the way the rest of the product displays MXN amounts:
// "$3,500.00".
func Currency(n float64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatFloat(n, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var sb strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	out := "$" + sb.String() + "." + fracPart
	if neg {
		return "-" + out
	}
	return out
}

// Round2 rounds to two decimal places.
func Round2(n float64) float64 {
	return math.Round(n*100) / 100
}

const cepLen = 12

// GenCEP generates a mock 12-character uppercase alphanumeric tracking key
// for receipt display. Best-effort per-session randomness, not validated for
// uniqueness.
func GenCEP() string {
	buf := make([]byte, cepLen)
	if _, err := rand.Read(buf); err != nil {
		// math/rand quality is acceptable for a display-only mock key,
		// but crypto/rand on supported platforms does not fail.
		panic(fmt.Sprintf("payments: read random: %v", err))
	}
	out := make([]byte, cepLen)
	for i, b := range buf {
		out[i] = base36Upper(b % 36)
	}
	return string(out)
}

func base36Upper(v byte) byte {
	if v < 10 {
		return '0' + v
	}
	return 'A' + v - 10
}

// CollectPayload is the collection-request schema consumed by the QR renderer
// and share sheet.
type CollectPayload struct {
	Type     string  `json:"type"`
	Bank     string  `json:"bank"`
	Account  string  `json:"account"`
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	Concept  string  `json:"concept"`
	TS       string  `json:"ts"`
	Deeplink string  `json:"deeplink"`
}

// CollectRequest carries the inputs for BuildCollectPayload.
type CollectRequest struct {
	Amount  float64
	Concept string
	Bank    string
	Account string
	Name    string
}

// BuildCollectPayload builds the SPEI_COLLECT payload. The amount is rounded
// to two decimals; the deeplink URL-encodes amount and concept as query
// parameters.
func BuildCollectPayload(req CollectRequest) CollectPayload {
	amount := Round2(req.Amount)
	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("concept", req.Concept)

	return CollectPayload{
		Type:     "SPEI_COLLECT",
		Bank:     req.Bank,
		Account:  req.Account,
		Name:     req.Name,
		Currency: "MXN",
		Amount:   amount,
		Concept:  req.Concept,
		TS:       time.Now().UTC().Format(time.RFC3339),
		Deeplink: "bankapp://collect?" + q.Encode(),
	}
}

// JSON renders the payload as the QR/share string.
func (p CollectPayload) JSON() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Receipt is the settled-transfer record rendered on the success screen and
// exported through the share sheet.
type Receipt struct {
	Amount        float64   `json:"amount"`
	Recipient     string    `json:"recipient"`
	RecipientBank string    `json:"recipient_bank"`
	IssuerBank    string    `json:"issuer_bank"`
	CEP           string    `json:"cep"`
	Timestamp     time.Time `json:"timestamp"`
}

// Text renders the plain-text receipt handed to the share/download
// collaborator.
func (r Receipt) Text() string {
	return strings.Join([]string{
		"TRANSFERENCIA EXITOSA",
		"Monto: " + Currency(r.Amount),
		"Para: " + r.Recipient,
		"Fecha y Hora: " + r.Timestamp.Format("02/01/2006 15:04"),
		"Clave de Rastreo (CEP): " + r.CEP,
		"Institución Emisora: " + r.IssuerBank,
		"Institución Receptora: " + r.RecipientBank,
	}, "\n")
}

// FileName names the downloadable receipt file.
func (r Receipt) FileName() string {
	return "Comprobante_SPEI_" + r.CEP + ".txt"
}
