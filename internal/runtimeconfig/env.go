package runtimeconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvSecret      = "NOTION_SECRET"
	EnvRepoURL     = "REPO_URL"
	EnvConcurrency = "EGRESS_CONCURRENCY"
	EnvLogLevel    = "EGRESS_LOG_LEVEL"
	EnvLogFormat   = "EGRESS_LOG_FORMAT"
	EnvLedgerDSN   = "EGRESS_LEDGER_DSN"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv overlays environment values onto cfg. REPO_URL only fills an
// empty PublicBaseURL so a positional argument wins. A go-logger format
// switches the provider to gologger.
func FromEnv(cfg Config, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return cfg, nil
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if value, ok := get(EnvSecret); ok {
		cfg.Notion.Secret = value
	}
	if value, ok := get(EnvRepoURL); ok && strings.TrimSpace(cfg.PublicBaseURL) == "" {
		cfg.PublicBaseURL = value
	}
	if value, ok := get(EnvConcurrency); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q", ErrConcurrencyInvalid, EnvConcurrency, value)
		}
		cfg.Concurrency = n
	}
	if value, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = value
	}
	if value, ok := get(EnvLogFormat); ok {
		cfg.Logging.Format = value
		cfg.Logging.Provider = "gologger"
	}
	if value, ok := get(EnvLedgerDSN); ok {
		cfg.Ledger.Enabled = true
		cfg.Ledger.DSN = value
	}
	return cfg, nil
}
