package httpapi

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rcastellanos/tavi/internal/dialogue"
	"github.com/rcastellanos/tavi/internal/eventlog"
	"github.com/rcastellanos/tavi/internal/metrics"
	"github.com/rcastellanos/tavi/internal/nlu"
	"github.com/rcastellanos/tavi/internal/notifications"
	"github.com/rcastellanos/tavi/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// clientFrame is one message from the chat client.
type clientFrame struct {
	Type    string  `json:"type"`
	Text    string  `json:"text,omitempty"`
	ID      string  `json:"id,omitempty"`
	PIN     string  `json:"pin,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Concept string  `json:"concept,omitempty"`
	Name    string  `json:"name,omitempty"`
	Alias   string  `json:"alias,omitempty"`
	Bank    string  `json:"bank,omitempty"`
	Query   string  `json:"query,omitempty"`
	Online  *bool   `json:"online,omitempty"`
}

// serverFrame is one message to the chat client.
type serverFrame struct {
	Type  string         `json:"type"`
	Turn  *dialogue.Turn `json:"turn,omitempty"`
	Error string         `json:"error,omitempty"`
}

// turnBuffer bridges the dialogue controller's sink to the websocket writer.
// Pushes never block the controller: a slow client loses turns rather than
// stalling timed transitions.
type turnBuffer struct {
	mu     sync.Mutex
	closed bool
	out    chan dialogue.Turn
	logger *log.Logger
}

func newTurnBuffer(logger *log.Logger) *turnBuffer {
	return &turnBuffer{out: make(chan dialogue.Turn, 256), logger: logger}
}

func (b *turnBuffer) Push(t dialogue.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	metrics.TurnsEmitted.Inc()
	select {
	case b.out <- t:
	default:
		b.logger.Printf("ws: dropping turn, client too slow")
	}
}

func (b *turnBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// handleChatWS upgrades the connection and runs one conversation until the
// client disconnects. The session token from POST /api/sessions is required.
func (r *Router) handleChatWS(w http.ResponseWriter, req *http.Request) {
	claims, err := r.verifySessionToken(req.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, `{"error": "invalid or missing token"}`, http.StatusUnauthorized)
		return
	}

	if !r.sessions.Add() {
		http.Error(w, `{"error": "server is draining"}`, http.StatusServiceUnavailable)
		return
	}
	defer r.sessions.Done()

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := claims.SessionID
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	r.logger.Printf("ws: session %s connected", sessionID)

	buf := newTurnBuffer(r.logger)
	defer buf.close()

	ctrl := dialogue.New(r.cfg.Dialogue, dialogue.Deps{
		Interpreter: r.interp,
		Replier:     r.replier,
		Sink:        buf,
		Logger:      r.logger,
	})
	ctrl.OnIntent = func(res nlu.Result, userText string) {
		metrics.IntentsInterpreted.WithLabelValues(string(res.Intent)).Inc()
		r.eventLog.LogAsync(sessionID, eventlog.EventIntentInterpreted, map[string]any{
			"intent": string(res.Intent),
			"text":   userText,
		})
	}
	ctrl.OnSettled = func(ev dialogue.SettledEvent) {
		r.onTransferSettled(sessionID, ev)
	}
	ctrl.OnEvent = func(name string, data map[string]any) {
		r.eventLog.LogAsync(sessionID, eventlog.EventType(name), data)
	}

	// Writer: serializes turns onto the socket in emission order.
	stop := make(chan struct{})
	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		for {
			select {
			case t := <-buf.out:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(serverFrame{Type: "turn", Turn: &t}); err != nil {
					r.logger.Printf("ws: write failed for %s: %v", sessionID, err)
					return
				}
			case <-stop:
				return
			}
		}
	}()

	ctrl.Start()

	// Reader: one frame at a time. The conversation is strictly sequential,
	// so frames are handled inline even when interpretation hits the network.
	ctx := req.Context()
	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Printf("ws: session %s read error: %v", sessionID, err)
			}
			break
		}
		r.handleClientFrame(ctx, conn, ctrl, frame)
	}

	close(stop)
	writerDone.Wait()

	r.eventLog.LogAsync(sessionID, eventlog.EventSessionEnded, map[string]any{
		"balance": ctrl.Balance(),
	})
	endCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.store.EndSession(endCtx, sessionID, time.Now().UTC()); err != nil {
		r.logger.Printf("ws: end session persist failed for %s: %v", sessionID, err)
	}
	r.logger.Printf("ws: session %s disconnected", sessionID)
}

func (r *Router) handleClientFrame(ctx context.Context, conn *websocket.Conn, ctrl *dialogue.Controller, frame clientFrame) {
	switch frame.Type {
	case "text":
		ctrl.Text(ctx, frame.Text)
	case "pick":
		ctrl.Pick(ctx, frame.ID)
	case "pin":
		ctrl.SubmitPIN(frame.PIN)
	case "amount":
		ctrl.SubmitAmount(frame.Amount)
	case "concept":
		ctrl.SubmitConcept(frame.Concept)
	case "skip_concept":
		ctrl.SubmitConcept("")
	case "search":
		ctrl.SearchRecipient(frame.Query)
	case "new_contact":
		ctrl.SubmitContact(frame.Name, frame.Alias, frame.Bank)
	case "collect":
		ctrl.Collect(frame.Amount, frame.Concept)
	case "deposit":
		ctrl.Deposit(frame.Amount)
	case "online":
		if frame.Online != nil {
			ctrl.SetOnline(*frame.Online)
		}
	case "reset":
		ctrl.Reset()
	default:
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = conn.WriteJSON(serverFrame{Type: "error", Error: "unknown frame type: " + frame.Type})
	}
}

// onTransferSettled fans a settlement out to metrics, the event log, the
// receipt store, push notifications and the ops webhook. Runs off the
// controller goroutine.
func (r *Router) onTransferSettled(sessionID string, ev dialogue.SettledEvent) {
	metrics.TransfersSettled.Inc()
	metrics.TransferAmount.Observe(ev.Amount)

	r.eventLog.LogAsync(sessionID, eventlog.EventTransferSettled, map[string]any{
		"amount":    ev.Amount,
		"recipient": ev.Recipient.Name,
		"cep":       ev.CEP,
		"balance":   ev.Balance,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.InsertReceipt(ctx, store.Receipt{
		SessionID:     sessionID,
		CEP:           ev.CEP,
		Recipient:     ev.Recipient.Name,
		RecipientBank: ev.Recipient.Bank,
		IssuerBank:    r.cfg.Dialogue.BankName,
		Amount:        ev.Amount,
		Balance:       ev.Balance,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		r.logger.Printf("ws: receipt persist failed for %s: %v", sessionID, err)
	}

	tokens, err := r.store.GetDeviceTokens(ctx, sessionID)
	if err != nil {
		r.logger.Printf("ws: device token lookup failed for %s: %v", sessionID, err)
	}
	for _, tok := range tokens {
		_ = r.apns.SendTransferNotification(tok, notifications.TransferNotification{
			CEP:       ev.CEP,
			Recipient: ev.Recipient.Name,
			Amount:    ev.Amount,
			Balance:   ev.Balance,
		})
	}

	r.discord.NotifyTransferSettled(ctx, sessionID, ev.Recipient.Name, ev.CEP, ev.Amount)
}
