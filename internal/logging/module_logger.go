package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-egress/pkg/interfaces"
)

const (
	rootModule      = "egress"
	exportModule    = "egress.export"
	schedulerModule = "egress.scheduler"
	imagesModule    = "egress.images"
	notionModule    = "egress.notion"
	renderModule    = "egress.render"
	ledgerModule    = "egress.ledger"
	verifyModule    = "egress.verify"
)

const (
	fieldItemID   = "item_id"
	fieldItemName = "item_name"
	fieldItemPath = "item_path"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field on every entry.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ExportLogger returns the logger namespace reserved for the export orchestrator.
func ExportLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, exportModule)
}

// SchedulerLogger returns the logger namespace reserved for the retry scheduler.
func SchedulerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, schedulerModule)
}

// ImagesLogger returns the logger namespace reserved for image localisation.
func ImagesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, imagesModule)
}

// NotionLogger returns the logger namespace reserved for the upstream client.
func NotionLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, notionModule)
}

// RenderLogger returns the logger namespace reserved for markdown rendering.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// LedgerLogger returns the logger namespace reserved for the run ledger.
func LedgerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, ledgerModule)
}

// VerifyLogger returns the logger namespace reserved for export verification.
func VerifyLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, verifyModule)
}

// WithItemContext enriches the logger with the identifiers of the item being
// exported. Empty values are ignored.
func WithItemContext(logger interfaces.Logger, id, name, path string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		fields[fieldItemID] = trimmed
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		fields[fieldItemName] = trimmed
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldItemPath] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
