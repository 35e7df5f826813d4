// Package store persists chat sessions, settled transfer receipts and device
// push tokens in Postgres. The server runs fully in-memory when no database is
// configured; every method on a nil Store is a no-op.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Session represents one chat session row.
type Session struct {
	ID        string     `json:"id"`
	Device    string     `json:"device,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Receipt represents a persisted transfer receipt.
type Receipt struct {
	ID            string    `json:"id,omitempty"`
	SessionID     string    `json:"session_id"`
	CEP           string    `json:"cep"`
	Recipient     string    `json:"recipient"`
	RecipientBank string    `json:"recipient_bank"`
	IssuerBank    string    `json:"issuer_bank"`
	Amount        float64   `json:"amount"`
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateSession records a new chat session.
func (s *Store) CreateSession(ctx context.Context, id, device string, startedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, device, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, device, startedAt)
	return err
}

// EndSession marks a session as ended.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET ended_at = COALESCE(ended_at, $2)
		WHERE id = $1
	`, id, at)
	return err
}

// InsertReceipt stores a settled transfer receipt.
func (s *Store) InsertReceipt(ctx context.Context, r Receipt) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO receipts (id, session_id, cep, recipient, recipient_bank, issuer_bank, amount, balance, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cep) DO NOTHING
	`, r.SessionID, r.CEP, r.Recipient, r.RecipientBank, r.IssuerBank, r.Amount, r.Balance, r.CreatedAt)
	return err
}

// GetReceiptByCEP retrieves a receipt by its tracking key.
func (s *Store) GetReceiptByCEP(ctx context.Context, cep string) (*Receipt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var r Receipt
	err := s.db.QueryRow(ctx, `
		SELECT id, session_id, cep, recipient, recipient_bank, issuer_bank, amount, balance, created_at
		FROM receipts
		WHERE cep = $1
	`, cep).Scan(&r.ID, &r.SessionID, &r.CEP, &r.Recipient, &r.RecipientBank, &r.IssuerBank, &r.Amount, &r.Balance, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReceipts returns the most recent receipts for a session.
func (s *Store) ListReceipts(ctx context.Context, sessionID string, limit int) ([]Receipt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, cep, recipient, recipient_bank, issuer_bank, amount, balance, created_at
		FROM receipts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CEP, &r.Recipient, &r.RecipientBank, &r.IssuerBank, &r.Amount, &r.Balance, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RegisterDeviceToken stores an APNs device token for transfer notifications.
func (s *Store) RegisterDeviceToken(ctx context.Context, sessionID, token string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (session_id, token, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token) DO UPDATE SET session_id = $1
	`, sessionID, token)
	return err
}

// GetDeviceTokens returns the push tokens registered for a session.
func (s *Store) GetDeviceTokens(ctx context.Context, sessionID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT token FROM device_tokens WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}
