package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rcastellanos/tavi/internal/dialogue"
	"github.com/rcastellanos/tavi/internal/eventlog"
	"github.com/rcastellanos/tavi/internal/store"
)

func testRouterConfig() RouterConfig {
	dcfg := dialogue.DefaultConfig()
	dcfg.AuthDelay = time.Millisecond
	dcfg.BiometricDelay = time.Millisecond
	dcfg.AuthorizeDelay = time.Millisecond
	dcfg.SettleDelay = time.Millisecond
	dcfg.DispatchDelay = time.Millisecond
	dcfg.AuthFailureRate = 0

	return RouterConfig{
		PublicBaseURL: "http://localhost:8080",
		Dialogue:      dcfg,
		JWTSecret:     "test-secret",
		JWTExpiry:     time.Hour,
	}
}

func newTestServer(t *testing.T, reg *SessionRegistry) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	h := NewRouter(testRouterConfig(), logger, store.New(nil), eventlog.New(nil), reg)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	WSURL     string `json:"ws_url"`
}

func createSession(t *testing.T, srv *httptest.Server) sessionResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", strings.NewReader(`{"device":"test"}`))
	if err != nil {
		t.Fatalf("POST /api/sessions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	if sess.SessionID == "" {
		t.Error("session_id is empty")
	}
	if sess.Token == "" {
		t.Error("token is empty")
	}
	if !strings.Contains(sess.WSURL, "/ws/chat?token=") {
		t.Errorf("ws_url = %q, want chat endpoint with token", sess.WSURL)
	}
	if _, err := time.Parse(time.RFC3339, sess.ExpiresAt); err != nil {
		t.Errorf("expires_at %q is not RFC3339: %v", sess.ExpiresAt, err)
	}

	// The minted token must verify against the same secret.
	verifier := testAuthRouter("test-secret")
	claims, err := verifier.verifySessionToken(sess.Token)
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if claims.SessionID != sess.SessionID {
		t.Errorf("token session id = %q, want %q", claims.SessionID, sess.SessionID)
	}
}

func TestCreateSessionEmptyBody(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /api/sessions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201 for bare POST", resp.StatusCode)
	}
}

func postInterpret(t *testing.T, srv *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/nlu/interpret", strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/nlu/interpret: %v", err)
	}
	return resp
}

func TestInterpretEndpoint(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	resp := postInterpret(t, srv, sess.Token, `{"text":"envía 200 a Ana por renta"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Intent    string   `json:"intent"`
		Recipient *string  `json:"recipient"`
		Amount    *float64 `json:"amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Intent != "send_money" {
		t.Errorf("intent = %q, want send_money", out.Intent)
	}
	if out.Amount == nil || *out.Amount != 200 {
		t.Errorf("amount = %v, want 200", out.Amount)
	}
	if out.Recipient == nil || *out.Recipient != "Ana" {
		t.Errorf("recipient = %v, want Ana", out.Recipient)
	}
}

func TestInterpretEndpointRejectsEmptyText(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	for _, body := range []string{`{"text":"  "}`, `not json`} {
		resp := postInterpret(t, srv, sess.Token, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestInterpretEndpointRequiresSessionToken(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postInterpret(t, srv, tt.token, `{"text":"mi saldo"}`)
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/sessions", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
