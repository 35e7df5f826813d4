package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rcastellanos/tavi/internal/eventlog"
	"github.com/rcastellanos/tavi/internal/metrics"
)

// handleCreateSession mints a new chat session and its websocket token.
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Device      string `json:"device"`
		DeviceToken string `json:"device_token"` // optional APNs token
	}
	if req.Body != nil {
		// The body is optional; a bare POST creates an anonymous session.
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	device := strings.TrimSpace(body.Device)
	if device == "" {
		device = "web"
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := r.generateSessionToken(sessionID, device)
	if err != nil {
		captureError(req, err, "failed to sign session token")
		http.Error(w, `{"error": "could not create session"}`, http.StatusInternalServerError)
		return
	}

	if err := r.store.CreateSession(req.Context(), sessionID, device, time.Now().UTC()); err != nil {
		// Persistence is best-effort; the in-memory session still works.
		r.logger.Printf("sessions: persist failed for %s: %v", sessionID, err)
	}
	if body.DeviceToken != "" {
		if err := r.store.RegisterDeviceToken(req.Context(), sessionID, body.DeviceToken); err != nil {
			r.logger.Printf("sessions: device token persist failed for %s: %v", sessionID, err)
		}
	}

	r.eventLog.LogAsync(sessionID, eventlog.EventSessionStarted, map[string]any{"device": device})
	r.discord.NotifyNewSession(req.Context(), sessionID, device)
	metrics.SessionsStarted.Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sessionID,
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"ws_url":     wsURLFromPublicBase(r.cfg.PublicBaseURL) + "/ws/chat?token=" + token,
	})
}

// handleInterpret runs one utterance through the interpreter and returns the
// normalized result. Used by the demo console to inspect NLU behaviour.
func (r *Router) handleInterpret(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		http.Error(w, `{"error": "text is required"}`, http.StatusBadRequest)
		return
	}

	res := r.interp.Interpret(req.Context(), body.Text)
	writeJSON(w, http.StatusOK, res)
}
