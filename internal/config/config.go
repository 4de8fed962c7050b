// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the ops server, logging, database and Redis paths, mail and CRM
// credentials, tier pricing, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig defines the outgoing mail relay used for verification codes.
type SMTPConfig struct {
	Host     string // SMTP_HOST
	Port     int    // SMTP_PORT
	Username string // SMTP_USERNAME
	Password string // SMTP_PASSWORD
	From     string // SMTP_FROM
}

// CRMConfig defines the Bitrix-style webhook integration.
type CRMConfig struct {
	WebhookURL     string // CRM_WEBHOOK_URL (empty disables the sync)
	DealCategoryID int    // CRM_DEAL_CATEGORY_ID
	SerialField    string // CRM_FIELD_SERIAL (custom deal field code)
	ModelField     string // CRM_FIELD_MODEL
	Timeout        time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Ops/webhook HTTP server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	GinMode           string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Storage
	DBPath    string // SQLite path
	RedisAddr string // empty -> in-memory conversation store
	RedisDB   int
	ConvTTL   time.Duration // conversation expiry in Redis

	// Integrations
	OutboxURL           string // transport gateway for outgoing messages; empty -> log only
	SMTP                SMTPConfig
	VerificationEnabled bool // EMAIL_VERIFICATION_ENABLED; off -> fixed code
	CRM                 CRMConfig

	// Warranty pricing, whole rubles. The base tier is free.
	ComfortPrice int
	PremiumPrice int

	// AdminChatIDs may run privileged commands.
	AdminChatIDs []int64

	// Notifications
	NotifyInterval time.Duration // scan period
	NotifyRPS      float64       // broadcast pacing, messages per second
	NotifyBurst    int

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DBPath:    getenv("DB_PATH", "warranty.db"),
		RedisAddr: getenv("REDIS_ADDR", ""),
		RedisDB:   getint("REDIS_DB", 0),
		ConvTTL:   getdur("CONVERSATION_TTL", 48*time.Hour),

		OutboxURL: strings.TrimRight(getenv("OUTBOX_URL", ""), "/"),

		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getint("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", ""),
		},
		VerificationEnabled: getbool("EMAIL_VERIFICATION_ENABLED", false),

		CRM: CRMConfig{
			WebhookURL:     strings.TrimRight(getenv("CRM_WEBHOOK_URL", ""), "/"),
			DealCategoryID: getint("CRM_DEAL_CATEGORY_ID", 0),
			SerialField:    getenv("CRM_FIELD_SERIAL", ""),
			ModelField:     getenv("CRM_FIELD_MODEL", ""),
			Timeout:        getdur("CRM_TIMEOUT", 10*time.Second),
		},

		ComfortPrice: getint("COMFORT_PRICE", 2990),
		PremiumPrice: getint("PREMIUM_PRICE", 4990),

		AdminChatIDs: splitIDs(getenv("ADMIN_CHAT_IDS", "")),

		NotifyInterval: getdur("NOTIFY_INTERVAL", time.Hour),
		NotifyRPS:      getfloat("NOTIFY_RPS", 20.0),
		NotifyBurst:    getint("NOTIFY_BURST", 5),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "warranty-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.ConvTTL < 0 {
		return cfg, errors.New("CONVERSATION_TTL must be >= 0")
	}
	if cfg.VerificationEnabled {
		if cfg.SMTP.Host == "" || cfg.SMTP.From == "" {
			return cfg, errors.New("SMTP_HOST and SMTP_FROM are required when EMAIL_VERIFICATION_ENABLED is on")
		}
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			return cfg, errors.New("SMTP_PORT must be a valid port")
		}
	}
	if cfg.ComfortPrice < 0 || cfg.PremiumPrice < 0 {
		return cfg, errors.New("tier prices must be >= 0")
	}
	if cfg.NotifyInterval <= 0 {
		return cfg, errors.New("NOTIFY_INTERVAL must be > 0")
	}
	if cfg.NotifyRPS <= 0 {
		return cfg, errors.New("NOTIFY_RPS must be > 0")
	}
	if cfg.NotifyBurst < 1 {
		return cfg, errors.New("NOTIFY_BURST must be >= 1")
	}
	if cfg.CRM.Timeout <= 0 {
		return cfg, errors.New("CRM_TIMEOUT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitIDs parses a comma-separated list of chat ids, skipping junk entries.
func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
