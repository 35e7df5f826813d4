package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcastellanos/tavi/internal/dialogue"
	"github.com/rcastellanos/tavi/internal/eventlog"
	"github.com/rcastellanos/tavi/internal/httpapi"
	"github.com/rcastellanos/tavi/internal/store"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	store    *store.Store
	eventLog *eventlog.Logger
}

// New wires the application. DATABASE_URL is optional: without it the server
// runs fully in-memory and session and receipt persistence become no-ops.
func New(cfg Config, logger *log.Logger) (*App, error) {
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db = pool
	} else {
		logger.Printf("app: no DATABASE_URL, running without persistence")
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    store.New(db),
		eventLog: eventlog.New(db),
	}, nil
}

func (a *App) Router(sessions *httpapi.SessionRegistry) http.Handler {
	dcfg := dialogue.DefaultConfig()
	dcfg.AssistantName = a.cfg.AssistantName
	dcfg.BankName = a.cfg.BankName
	dcfg.PIN = a.cfg.PIN
	dcfg.InitialBalance = a.cfg.InitialBalance
	dcfg.AuthFailureRate = a.cfg.AuthFailureRate

	routerCfg := httpapi.RouterConfig{
		PublicBaseURL:     a.cfg.PublicBaseURL,
		GeminiAPIKey:      a.cfg.GeminiAPIKey,
		GeminiModel:       a.cfg.GeminiModel,
		Dialogue:          dcfg,
		JWTSecret:         a.cfg.JWTSecret,
		JWTExpiry:         a.cfg.JWTExpiry,
		DiscordWebhookURL: a.cfg.DiscordWebhookURL,
		APNsKeyPath:       a.cfg.APNsKeyPath,
		APNsKeyID:         a.cfg.APNsKeyID,
		APNsTeamID:        a.cfg.APNsTeamID,
		APNsBundleID:      a.cfg.APNsBundleID,
		APNsProduction:    a.cfg.APNsProduction,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, sessions)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
