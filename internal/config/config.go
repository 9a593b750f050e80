// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/argyx/officetrack/internal/search"
)

// Config holds every runtime setting. All fields come from environment
// variables; there is no config file.
type Config struct {
	// Google Custom Search credentials.
	GoogleAPIKey string
	GoogleCSEID  string

	// SMTP delivery.
	EmailUsername string
	EmailPassword string
	ReceiverEmail string
	SMTPServer    string
	SMTPPort      int

	// Digest wording language, "en" or "el".
	EmailLanguage search.Language

	MaxSearchQueries int
	MaxPagesPerQuery int

	// SearchConcurrency bounds concurrent provider calls.
	SearchConcurrency int

	// FetchPages enables full page-text enrichment before extraction.
	FetchPages bool

	// SendAnalytics enables the weekly analytics mail.
	SendAnalytics bool

	// StoreBackend selects the dedup store: sqlite, postgres, or leveldb.
	// StoreDSN is the backend-specific path or connection string.
	StoreBackend string
	StoreDSN     string

	// MetricsPort exposes /metrics when non-zero.
	MetricsPort int

	LogFile   string
	RunLogDir string
	LockFile  string

	HTTPTimeout time.Duration
}

// Load reads the environment and applies defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SMTP_SERVER", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_LANGUAGE", "en")
	v.SetDefault("MAX_SEARCH_QUERIES", 30)
	v.SetDefault("MAX_PAGES_PER_QUERY", 3)
	v.SetDefault("SEARCH_CONCURRENCY", 3)
	v.SetDefault("FETCH_PAGES", true)
	v.SetDefault("SEND_ANALYTICS", false)
	v.SetDefault("STORE_BACKEND", "sqlite")
	v.SetDefault("STORE_DSN", "office_projects.db")
	v.SetDefault("METRICS_PORT", 0)
	v.SetDefault("RUN_LOG_DIR", "runs")
	v.SetDefault("LOCK_FILE", "officetrack.lock")
	v.SetDefault("HTTP_TIMEOUT", "30s")

	cfg := &Config{
		GoogleAPIKey:      v.GetString("GOOGLE_API_KEY"),
		GoogleCSEID:       v.GetString("GOOGLE_CSE_ID"),
		EmailUsername:     v.GetString("EMAIL_USERNAME"),
		EmailPassword:     v.GetString("EMAIL_PASSWORD"),
		ReceiverEmail:     v.GetString("RECEIVER_EMAIL"),
		SMTPServer:        v.GetString("SMTP_SERVER"),
		SMTPPort:          v.GetInt("SMTP_PORT"),
		EmailLanguage:     search.Language(v.GetString("EMAIL_LANGUAGE")),
		MaxSearchQueries:  v.GetInt("MAX_SEARCH_QUERIES"),
		MaxPagesPerQuery:  v.GetInt("MAX_PAGES_PER_QUERY"),
		SearchConcurrency: v.GetInt("SEARCH_CONCURRENCY"),
		FetchPages:        v.GetBool("FETCH_PAGES"),
		SendAnalytics:     v.GetBool("SEND_ANALYTICS"),
		StoreBackend:      v.GetString("STORE_BACKEND"),
		StoreDSN:          v.GetString("STORE_DSN"),
		MetricsPort:       v.GetInt("METRICS_PORT"),
		LogFile:           v.GetString("LOG_FILE"),
		RunLogDir:         v.GetString("RUN_LOG_DIR"),
		LockFile:          v.GetString("LOCK_FILE"),
		HTTPTimeout:       v.GetDuration("HTTP_TIMEOUT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if c.GoogleCSEID == "" {
		return fmt.Errorf("GOOGLE_CSE_ID is required")
	}
	switch c.EmailLanguage {
	case search.English, search.Greek:
	default:
		return fmt.Errorf("EMAIL_LANGUAGE must be %q or %q, got %q",
			search.English, search.Greek, c.EmailLanguage)
	}
	switch c.StoreBackend {
	case "sqlite", "postgres", "leveldb":
	default:
		return fmt.Errorf("STORE_BACKEND must be sqlite, postgres, or leveldb, got %q", c.StoreBackend)
	}
	if c.MaxSearchQueries <= 0 {
		return fmt.Errorf("MAX_SEARCH_QUERIES must be positive, got %d", c.MaxSearchQueries)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT out of range: %d", c.SMTPPort)
	}
	return nil
}

// MailConfigured reports whether digest delivery is fully configured. Runs
// without mail settings still scan and record, they just cannot notify.
func (c *Config) MailConfigured() bool {
	return c.EmailUsername != "" && c.EmailPassword != "" && c.ReceiverEmail != ""
}
