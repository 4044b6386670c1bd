package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"jibunshi/internal/app"
	"jibunshi/internal/config"
	"jibunshi/internal/server"
	"jibunshi/internal/util"
	"jibunshi/pkg/ai"
	"jibunshi/pkg/pdf"
	"jibunshi/pkg/storage"
	"jibunshi/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	sweepInterval, err := config.ParseSweepInterval(cfg.SessionSweepInterval)
	if err != nil {
		log.Fatalf("failed to parse sweep interval: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	photos, err := newPhotoStore(cfg)
	if err != nil {
		log.Fatalf("failed to init photo storage: %v", err)
	}

	generator, err := ai.NewTextGenerator(ai.Config{
		Provider: cfg.AIProvider,
		BaseURL:  cfg.AIBaseURL,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
	})
	if err != nil {
		log.Fatalf("failed to init ai provider: %v", err)
	}
	if generator == nil {
		slog.Warn("ai provider not configured, ai endpoints will fail per request")
	}

	var renderer *pdf.Renderer
	if cfg.FontPath != "" {
		renderer, err = pdf.NewRenderer(cfg.PDFDir, cfg.FontPath)
		if err != nil {
			log.Fatalf("failed to init pdf renderer: %v", err)
		}
	} else {
		slog.Warn("fontPath not configured, pdf generation disabled")
	}

	appCore, err := app.New(app.Config{
		Store:          dataStore,
		Photos:         photos,
		Generator:      generator,
		Renderer:       renderer,
		TokenSecret:    cfg.TokenSecret,
		TokenTTL:       tokenTTL,
		SweepInterval:  sweepInterval,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedExts:    cfg.AllowedExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	uploadsDir := ""
	if cfg.StorageBackend == "local" {
		uploadsDir = cfg.UploadDir
	}
	httpServer, err := server.New(server.Config{
		App:                    appCore,
		Redis:                  redisClient,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		AIRateLimitPerMinute:   cfg.AIRateLimitPerMinute,
		UploadsDir:             uploadsDir,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	appCore.StartSessionSweeper()
	defer appCore.StopSessionSweeper()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

func newPhotoStore(cfg config.FileConfig) (storage.PhotoStore, error) {
	if cfg.StorageBackend == "minio" {
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return storage.NewFileStore(cfg.UploadDir)
}
