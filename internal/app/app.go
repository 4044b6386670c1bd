package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jibunshi/pkg/ai"
	"jibunshi/pkg/auth"
	"jibunshi/pkg/pdf"
	"jibunshi/pkg/storage"
	"jibunshi/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	Store          store.Store
	Photos         storage.PhotoStore
	Generator      ai.TextGenerator
	Renderer       *pdf.Renderer
	TokenSecret    string
	TokenTTL       time.Duration
	SweepInterval  time.Duration
	MaxUploadBytes int64
	AllowedExts    []string
}

// App is the core application service wiring storage, auth, AI and PDF
// rendering together. It is constructed once in main and injected into the
// HTTP server.
type App struct {
	store       store.Store
	photos      storage.PhotoStore
	generator   ai.TextGenerator
	renderer    *pdf.Renderer
	tokens      *auth.TokenIssuer
	maxUpload   int64
	allowedExts map[string]bool

	sweepInterval time.Duration
	sweepStop     context.CancelFunc
}

// New constructs the application. Store is required; Photos, Generator and
// Renderer may be nil when the corresponding feature is unconfigured, in
// which case the affected endpoints fail per request.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	tokens, err := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	allowed := make(map[string]bool, len(cfg.AllowedExts))
	for _, ext := range cfg.AllowedExts {
		allowed[ext] = true
	}
	if len(allowed) == 0 {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
			allowed[ext] = true
		}
	}
	return &App{
		store:         cfg.Store,
		photos:        cfg.Photos,
		generator:     cfg.Generator,
		renderer:      cfg.Renderer,
		tokens:        tokens,
		maxUpload:     maxUpload,
		allowedExts:   allowed,
		sweepInterval: cfg.SweepInterval,
	}, nil
}

// MaxUploadBytes returns the configured upload size cap.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUpload
}

// StartSessionSweeper launches the periodic expired-session cleanup goroutine.
// It is a no-op when the sweep interval is zero.
func (a *App) StartSessionSweeper() {
	if a.sweepInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.sweepStop = cancel
	go func() {
		ticker := time.NewTicker(a.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := a.store.DeleteExpiredSessions(time.Now().UTC())
				if err != nil {
					slog.Warn("session sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("session sweep", "deleted", deleted)
				}
			}
		}
	}()
}

// StopSessionSweeper stops the sweeper goroutine if it was started.
func (a *App) StopSessionSweeper() {
	if a.sweepStop != nil {
		a.sweepStop()
		a.sweepStop = nil
	}
}
