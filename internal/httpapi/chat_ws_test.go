package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialChat(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

// readTurnContaining reads frames until an assistant turn contains substr.
func readTurnContaining(t *testing.T, conn *websocket.Conn, substr string) serverFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f serverFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for turn containing %q: %v", substr, err)
		}
		if f.Turn != nil && strings.Contains(f.Turn.Text, substr) {
			return f
		}
	}
}

func TestChatWSRequiresToken(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())

	_, resp, err := dialChat(t, srv, "")
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake status = %v, want 401", resp)
	}
}

func TestChatWSRejectsWhileDraining(t *testing.T) {
	reg := NewSessionRegistry()
	srv := newTestServer(t, reg)
	sess := createSession(t, srv)

	reg.StartDraining()

	_, resp, err := dialChat(t, srv, sess.Token)
	if err == nil {
		t.Fatal("dial should fail while draining")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("handshake status = %v, want 503", resp)
	}
}

func TestChatWSConversation(t *testing.T) {
	reg := NewSessionRegistry()
	srv := newTestServer(t, reg)
	sess := createSession(t, srv)

	conn, _, err := dialChat(t, srv, sess.Token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Welcome turn with the authentication options arrives first.
	welcome := readTurnContaining(t, conn, "verificar su identidad")
	if len(welcome.Turn.Options) != 2 {
		t.Fatalf("welcome options = %v, want 2", welcome.Turn.Options)
	}

	// Authenticate with the demo PIN.
	if err := conn.WriteJSON(clientFrame{Type: "pick", ID: "auth.pin"}); err != nil {
		t.Fatalf("write pick: %v", err)
	}
	if err := conn.WriteJSON(clientFrame{Type: "pin", PIN: "1234"}); err != nil {
		t.Fatalf("write pin: %v", err)
	}
	readTurnContaining(t, conn, "identidad ha sido verificada")

	// Free-text balance query goes through the fallback classifier.
	if err := conn.WriteJSON(clientFrame{Type: "text", Text: "mi saldo"}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	readTurnContaining(t, conn, "$3,500.00")

	if got := reg.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d during session, want 1", got)
	}
}

func TestChatWSTransferFlow(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	conn, _, err := dialChat(t, srv, sess.Token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readTurnContaining(t, conn, "verificar su identidad")
	mustWrite(t, conn, clientFrame{Type: "pick", ID: "auth.pin"})
	mustWrite(t, conn, clientFrame{Type: "pin", PIN: "1234"})
	readTurnContaining(t, conn, "identidad ha sido verificada")

	mustWrite(t, conn, clientFrame{Type: "pick", ID: "menu.send"})
	readTurnContaining(t, conn, "¿A quién desea enviar dinero?")
	mustWrite(t, conn, clientFrame{Type: "pick", ID: "ana"})
	readTurnContaining(t, conn, "¿Cuánto desea enviar a Ana López?")
	mustWrite(t, conn, clientFrame{Type: "amount", Amount: 200})
	readTurnContaining(t, conn, "concepto de pago")
	mustWrite(t, conn, clientFrame{Type: "concept", Concept: "renta"})
	readTurnContaining(t, conn, "confirme los datos")
	mustWrite(t, conn, clientFrame{Type: "pick", ID: "confirm.send"})

	// Failure rate is zero in the test config, so settlement is certain.
	success := readTurnContaining(t, conn, "Transferencia exitosa.")
	if success.Turn.Receipt == nil {
		t.Fatal("success turn should carry a receipt")
	}
	if success.Turn.Receipt.Amount != 200 || success.Turn.Receipt.Recipient != "Ana López" {
		t.Errorf("receipt = %+v", success.Turn.Receipt)
	}
	if len(success.Turn.Receipt.CEP) != 12 {
		t.Errorf("CEP = %q, want 12 characters", success.Turn.Receipt.CEP)
	}
}

func TestChatWSSkipConceptFrame(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	conn, _, err := dialChat(t, srv, sess.Token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readTurnContaining(t, conn, "verificar su identidad")
	mustWrite(t, conn, clientFrame{Type: "pick", ID: "auth.pin"})
	mustWrite(t, conn, clientFrame{Type: "pin", PIN: "1234"})
	readTurnContaining(t, conn, "identidad ha sido verificada")

	mustWrite(t, conn, clientFrame{Type: "pick", ID: "menu.send"})
	readTurnContaining(t, conn, "¿A quién desea enviar dinero?")
	mustWrite(t, conn, clientFrame{Type: "pick", ID: "ana"})
	readTurnContaining(t, conn, "¿Cuánto desea enviar a Ana López?")
	mustWrite(t, conn, clientFrame{Type: "amount", Amount: 150})
	readTurnContaining(t, conn, "concepto de pago")
	mustWrite(t, conn, clientFrame{Type: "skip_concept"})

	review := readTurnContaining(t, conn, "confirme los datos")
	if !strings.Contains(review.Turn.Text, "(Sin concepto)") {
		t.Errorf("review = %q, want the empty-concept placeholder", review.Turn.Text)
	}
}

func TestChatWSUnknownFrameType(t *testing.T) {
	srv := newTestServer(t, NewSessionRegistry())
	sess := createSession(t, srv)

	conn, _, err := dialChat(t, srv, sess.Token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readTurnContaining(t, conn, "verificar su identidad")
	mustWrite(t, conn, clientFrame{Type: "bogus"})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f serverFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for error frame: %v", err)
		}
		if f.Type == "error" {
			if !strings.Contains(f.Error, "bogus") {
				t.Errorf("error = %q, want it to name the frame type", f.Error)
			}
			return
		}
	}
}

func mustWrite(t *testing.T, conn *websocket.Conn, f clientFrame) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Fatalf("write %s frame: %v", f.Type, err)
	}
}
