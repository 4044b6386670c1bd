package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"jibunshi/internal/app"
	"jibunshi/internal/ratelimit"
	"jibunshi/internal/security"
	"jibunshi/internal/util"
	"jibunshi/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                    *app.App
	Redis                  *redis.Client
	AuthRateLimitPerMinute int
	AIRateLimitPerMinute   int
	UploadsDir             string
}

// Server exposes the HTTP API.
type Server struct {
	app         *app.App
	mux         *http.ServeMux
	alerter     *security.AuditAlerter
	authLimiter *ratelimit.FixedWindowLimiter
	aiLimiter   *ratelimit.FixedWindowLimiter
	uploadsDir  string
}

// New constructs the server with routes configured. A nil Redis client
// disables rate limiting and brute-force alerting.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	s := &Server{
		app:        cfg.App,
		mux:        http.NewServeMux(),
		uploadsDir: cfg.UploadsDir,
	}
	if cfg.Redis != nil {
		authLimit := cfg.AuthRateLimitPerMinute
		if authLimit <= 0 {
			authLimit = 30
		}
		aiLimit := cfg.AIRateLimitPerMinute
		if aiLimit <= 0 {
			aiLimit = 20
		}
		var err error
		s.authLimiter, err = ratelimit.NewFixedWindowLimiter(cfg.Redis, "jibunshi:ratelimit:auth", authLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init auth limiter: %w", err)
		}
		s.aiLimiter, err = ratelimit.NewFixedWindowLimiter(cfg.Redis, "jibunshi:ratelimit:ai", aiLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init ai limiter: %w", err)
		}
		s.alerter = security.NewAuditAlerter(cfg.Redis, "jibunshi:security:alerts")
	} else {
		slog.Warn("redis not configured, rate limiting and alerting disabled")
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the shared middleware.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("/api/users/register", s.handleRegister)
	s.mux.HandleFunc("/api/users/check-name", s.handleCheckName)
	s.mux.HandleFunc("/api/users/check-birthday", s.handleCheckBirthday)
	s.mux.HandleFunc("/api/users/verify-pin", s.handleVerifyPIN)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// interview
	s.mux.Handle("/api/interview/save", s.authenticated(s.handleInterviewSave))
	s.mux.Handle("/api/interview/load", s.authenticated(s.handleInterviewLoad))
	s.mux.Handle("/api/interview/delete", s.authenticated(s.handleInterviewDelete))
	s.mux.Handle("/api/interview/question", s.authenticated(s.handleInterviewQuestion))

	// timeline
	s.mux.Handle("/api/timeline", s.authenticated(s.handleTimeline))
	s.mux.Handle("/api/timeline/", s.authenticated(s.handleTimelineByID))

	// photos
	s.mux.Handle("/api/photos/upload", s.authenticated(s.handlePhotoUpload))
	s.mux.Handle("/api/photos", s.authenticated(s.handlePhotos))
	s.mux.Handle("/api/photos/", s.authenticated(s.handlePhotoByID))

	// ai
	s.mux.Handle("/api/ai/correct", s.authenticated(s.handleAICorrect))
	s.mux.Handle("/api/ai/question", s.authenticated(s.handleAIQuestion))
	s.mux.Handle("/api/ai/summary", s.authenticated(s.handleAISummary))

	// biography
	s.mux.Handle("/api/biography", s.authenticated(s.handleBiography))
	s.mux.Handle("/api/biography/assemble", s.authenticated(s.handleBiographyAssemble))

	// pdf
	s.mux.Handle("/api/pdf/generate", s.authenticated(s.handlePDFGenerate))
	s.mux.Handle("/api/pdf/download/", s.authenticated(s.handlePDFDownload))

	// cleanup
	s.mux.Handle("/api/cleanup/user", s.authenticated(s.handleCleanupUser))

	// static photo serving for the local storage backend
	if s.uploadsDir != "" {
		s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrapper
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "users.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.VerifyToken(token)
		if err != nil {
			s.audit(r, "users.authorize", "fail", "reason", "invalid_token_or_session")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// writeAppError maps application sentinel errors to HTTP responses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, app.ErrInvalidCredentials.Error())
	case errors.Is(err, app.ErrIdentityTaken):
		writeError(w, http.StatusConflict, app.ErrIdentityTaken.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrInterviewNotFound),
		errors.Is(err, app.ErrBiographyNotFound),
		errors.Is(err, app.ErrEntryNotFound),
		errors.Is(err, app.ErrPhotoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrAIUnavailable):
		writeError(w, http.StatusServiceUnavailable, app.ErrAIUnavailable.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return "", false
	}
	return authHeader[len(prefix):], true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := util.ClientIP(r)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
	} else {
		slog.Warn("security_event", logAttrs...)
	}
	result, err := s.alerter.Observe(event, outcome, ip)
	if err != nil {
		slog.Warn("alerter observe failed", "error", err)
		return
	}
	if result.Triggered {
		slog.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", result.Count,
			"threshold", result.Threshold,
			"window", result.Window.String(),
		)
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
