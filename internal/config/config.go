package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location relative to the working dir.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DBDriver    string `yaml:"dbDriver"`
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	TokenSecret          string `yaml:"tokenSecret"`
	TokenTTL             string `yaml:"tokenTTL"`
	SessionSweepInterval string `yaml:"sessionSweepInterval"`

	UploadDir         string   `yaml:"uploadDir"`
	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	StorageBackend    string   `yaml:"storageBackend"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	PDFDir   string `yaml:"pdfDir"`
	FontPath string `yaml:"fontPath"`

	AIProvider string `yaml:"aiProvider"`
	AIBaseURL  string `yaml:"aiBaseURL"`
	AIAPIKey   string `yaml:"aiApiKey"`
	AIModel    string `yaml:"aiModel"`

	AuthRateLimitPerMinute int `yaml:"authRateLimitPerMinute"`
	AIRateLimitPerMinute   int `yaml:"aiRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		cfg.TokenTTL = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.StorageBackend = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("PDF_DIR"); v != "" {
		cfg.PDFDir = v
	}
	if v := os.Getenv("FONT_PATH"); v != "" {
		cfg.FontPath = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AIBaseURL = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AIModel = v
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("AI_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AIRateLimitPerMinute = n
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.DBDriver == "" {
		cfg.DBDriver = "postgres"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.PDFDir == "" {
		cfg.PDFDir = "pdfs"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "local"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}
	if cfg.TokenTTL == "" {
		cfg.TokenTTL = "168h"
	}
	if cfg.SessionSweepInterval == "" {
		cfg.SessionSweepInterval = "1h"
	}
	if cfg.AuthRateLimitPerMinute == 0 {
		cfg.AuthRateLimitPerMinute = 30
	}
	if cfg.AIRateLimitPerMinute == 0 {
		cfg.AIRateLimitPerMinute = 20
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml)")
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown dbDriver %q (want postgres or sqlite)", cfg.DBDriver)
	}
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return errors.New("config: tokenSecret is required (set TOKEN_SECRET)")
	}
	switch cfg.StorageBackend {
	case "local", "minio":
	default:
		return fmt.Errorf("config: unknown storageBackend %q (want local or minio)", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "minio" {
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for minio storage")
		}
	}
	switch cfg.AIProvider {
	case "", "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("config: unknown aiProvider %q", cfg.AIProvider)
	}
	if cfg.AuthRateLimitPerMinute < 0 || cfg.AIRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

// ParseTokenTTL parses the access token TTL duration string.
func ParseTokenTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid tokenTTL duration: %w", err)
	}
	return dur, nil
}

// ParseSweepInterval parses the expired session sweep interval string.
func ParseSweepInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionSweepInterval duration: %w", err)
	}
	return dur, nil
}
