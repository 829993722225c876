package runtimeconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrSecretRequired         = errors.New("egress config: content source secret is required")
	ErrSourceIDRequired       = errors.New("egress config: source id is required")
	ErrTargetDirRequired      = errors.New("egress config: target directory is required")
	ErrPublicBaseURLInvalid   = errors.New("egress config: public base url must be an absolute http(s) url")
	ErrConcurrencyInvalid     = errors.New("egress config: concurrency must be at least 1")
	ErrMaxRoundsInvalid       = errors.New("egress config: scheduler max rounds must be at least 1")
	ErrCooldownInvalid        = errors.New("egress config: scheduler default cooldown must be zero or positive")
	ErrPageSizeInvalid        = errors.New("egress config: notion page size must be between 1 and 100")
	ErrRateInvalid            = errors.New("egress config: notion request rate must be zero or positive")
	ErrLedgerDSNRequired      = errors.New("egress config: ledger dsn is required when the ledger is enabled")
	ErrLoggingProviderUnknown = errors.New("egress config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("egress config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("egress config: logging format is invalid")
)

// Config aggregates everything one export run needs. CacheDir holds the
// <sourceId>.json item cache; empty means the working directory.
type Config struct {
	SourceID      string
	TargetDir     string
	PublicBaseURL string
	CacheDir      string
	ProgressFile  string
	ManifestFile  string
	SolutionsDir  string
	Concurrency   int
	Scheduler     SchedulerConfig
	Notion        NotionConfig
	Images        ImagesConfig
	Ledger        LedgerConfig
	Logging       LoggingConfig
}

// SchedulerConfig bounds the retry rounds.
type SchedulerConfig struct {
	MaxRounds       int
	DefaultCooldown time.Duration
}

// NotionConfig configures the upstream API client.
type NotionConfig struct {
	Secret            string
	BaseURL           string
	Version           string
	PageSize          int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// ImagesConfig configures image localisation.
type ImagesConfig struct {
	Enabled            bool
	Dir                string
	ObjectStorageHosts []string
	MaxRedirects       int
	Timeout            time.Duration
}

// LedgerConfig configures the optional SQLite run ledger.
type LedgerConfig struct {
	Enabled  bool
	DSN      string
	CacheTTL time.Duration
}

// LoggingConfig selects the logger provider.
type LoggingConfig struct {
	Provider string
	Level    string
	Format   string
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		ProgressFile: ".progress.json",
		ManifestFile: "curriculum.json",
		SolutionsDir: "solutions",
		Concurrency:  10,
		Scheduler: SchedulerConfig{
			MaxRounds:       10,
			DefaultCooldown: 60 * time.Second,
		},
		Notion: NotionConfig{
			BaseURL:           "https://api.notion.com",
			Version:           "2022-06-28",
			PageSize:          100,
			RequestsPerSecond: 3,
			Burst:             3,
			Timeout:           30 * time.Second,
		},
		Images: ImagesConfig{
			Enabled:            true,
			Dir:                "images",
			ObjectStorageHosts: []string{"s3.", "amazonaws.com"},
			MaxRedirects:       5,
			Timeout:            60 * time.Second,
		},
		Ledger: LedgerConfig{
			CacheTTL: time.Minute,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate checks the configuration and returns the first failing rule as a
// sentinel error.
func (cfg Config) Validate() error {
	checks := []struct {
		value any
		err   error
		rules []validation.Rule
	}{
		{strings.TrimSpace(cfg.Notion.Secret), ErrSecretRequired, []validation.Rule{validation.Required}},
		{strings.TrimSpace(cfg.SourceID), ErrSourceIDRequired, []validation.Rule{validation.Required}},
		{strings.TrimSpace(cfg.TargetDir), ErrTargetDirRequired, []validation.Rule{validation.Required}},
		{strings.TrimSpace(cfg.PublicBaseURL), ErrPublicBaseURLInvalid, []validation.Rule{validation.By(httpURL)}},
		{cfg.Concurrency, ErrConcurrencyInvalid, []validation.Rule{validation.Required, validation.Min(1)}},
		{cfg.Scheduler.MaxRounds, ErrMaxRoundsInvalid, []validation.Rule{validation.Required, validation.Min(1)}},
		{int64(cfg.Scheduler.DefaultCooldown), ErrCooldownInvalid, []validation.Rule{validation.Min(int64(0))}},
		{cfg.Notion.PageSize, ErrPageSizeInvalid, []validation.Rule{validation.Required, validation.Min(1), validation.Max(100)}},
		{cfg.Notion.RequestsPerSecond, ErrRateInvalid, []validation.Rule{validation.Min(0.0)}},
	}
	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return fmt.Errorf("%w: %v", check.err, err)
		}
	}

	if cfg.Ledger.Enabled && strings.TrimSpace(cfg.Ledger.DSN) == "" {
		return ErrLedgerDSNRequired
	}
	return cfg.Logging.validate()
}

func (l LoggingConfig) validate() error {
	provider := strings.ToLower(strings.TrimSpace(l.Provider))
	if provider != "" && provider != "console" && provider != "gologger" {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.ToLower(strings.TrimSpace(l.Level)); level != "" && !slices.Contains(levels, level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if format := strings.ToLower(strings.TrimSpace(l.Format)); format != "" && !slices.Contains(formats, format) {
		return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
	}
	return nil
}

var (
	levels  = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal"}
	formats = []string{"json", "console", "pretty"}
)

func httpURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return validation.NewError("validation_public_base_url", "must start with http:// or https://")
	}
	return nil
}
