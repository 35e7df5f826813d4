package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel  = "gemini-1.5-flash"
)

// Config holds configuration for the remote interpreter and reply generator.
// An empty APIKey is a valid, fully-supported configuration: every call runs
// the deterministic fallback instead.
type Config struct {
	APIKey     string
	Model      string // e.g. "gemini-1.5-flash"
	HTTPClient *http.Client
}

// Interpreter classifies utterances, preferring the remote model and falling
// back to the rule-based classifier on any failure.
type Interpreter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewInterpreter creates an interpreter from cfg, filling defaults.
func NewInterpreter(cfg Config) *Interpreter {
	return &Interpreter{
		apiKey:     cfg.APIKey,
		model:      modelOrDefault(cfg.Model),
		baseURL:    geminiAPIBase,
		httpClient: clientOrDefault(cfg.HTTPClient),
	}
}

// Enabled reports whether the remote path is configured.
func (i *Interpreter) Enabled() bool { return i.apiKey != "" }

// Interpret classifies text into a normalized Result. Remote failures of any
// kind (network, non-2xx, empty or malformed payload) are swallowed and the
// rule-based classifier runs on the same input; the caller always gets a
// structured result, never an error.
func (i *Interpreter) Interpret(ctx context.Context, text string) Result {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return Unknown()
	}
	if i.apiKey == "" {
		return Classify(cleaned)
	}
	res, err := i.remoteInterpret(ctx, cleaned)
	if err != nil {
		return Classify(cleaned)
	}
	return res
}

func (i *Interpreter) remoteInterpret(ctx context.Context, text string) (Result, error) {
	req := generateRequest{
		SystemInstruction: &geminiContent{
			Role:  "system",
			Parts: []geminiPart{{Text: InterpretSystemPrompt}},
		},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: text}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopP:            0.9,
			MaxOutputTokens: 200,
		},
	}

	out, err := callGemini(ctx, i.httpClient, i.baseURL, i.model, i.apiKey, req)
	if err != nil {
		return Unknown(), err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(out)), &raw); err != nil {
		return Unknown(), fmt.Errorf("parse interpret result: %w", err)
	}
	return Normalize(raw), nil
}

// generateRequest is a Gemini generateContent request.
type generateRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// callGemini issues one generateContent round trip and returns the joined
// text of the first candidate.
func callGemini(ctx context.Context, client *http.Client, baseURL, model, apiKey string, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		baseURL, url.PathEscape(model), url.QueryEscape(apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini API error: %s - %s", resp.Status, string(respBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty candidate text")
	}
	return out, nil
}

// stripCodeFences unwraps a ```json ... ``` block the model sometimes emits.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func modelOrDefault(model string) string {
	if model == "" {
		return defaultModel
	}
	return model
}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: 10 * time.Second}
	}
	return c
}
