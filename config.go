package egress

import "github.com/goliatone/go-egress/internal/runtimeconfig"

var (
	ErrSecretRequired         = runtimeconfig.ErrSecretRequired
	ErrSourceIDRequired       = runtimeconfig.ErrSourceIDRequired
	ErrTargetDirRequired      = runtimeconfig.ErrTargetDirRequired
	ErrPublicBaseURLInvalid   = runtimeconfig.ErrPublicBaseURLInvalid
	ErrConcurrencyInvalid     = runtimeconfig.ErrConcurrencyInvalid
	ErrMaxRoundsInvalid       = runtimeconfig.ErrMaxRoundsInvalid
	ErrCooldownInvalid        = runtimeconfig.ErrCooldownInvalid
	ErrPageSizeInvalid        = runtimeconfig.ErrPageSizeInvalid
	ErrRateInvalid            = runtimeconfig.ErrRateInvalid
	ErrLedgerDSNRequired      = runtimeconfig.ErrLedgerDSNRequired
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	SchedulerConfig = runtimeconfig.SchedulerConfig
	NotionConfig    = runtimeconfig.NotionConfig
	ImagesConfig    = runtimeconfig.ImagesConfig
	LedgerConfig    = runtimeconfig.LedgerConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
	LookupFunc      = runtimeconfig.LookupFunc
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// FromEnv overlays NOTION_SECRET, REPO_URL and the EGRESS_* variables onto cfg.
func FromEnv(cfg Config, lookup LookupFunc) (Config, error) {
	return runtimeconfig.FromEnv(cfg, lookup)
}
