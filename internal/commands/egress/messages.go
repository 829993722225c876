package egresscmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	exportMessageType = "egress.export"
	verifyMessageType = "egress.verify"
)

// ExportCommand requests one export run of SourceID into TargetDir. Zero
// values fall back to the handler's base configuration.
type ExportCommand struct {
	SourceID      string `json:"source_id"`
	TargetDir     string `json:"target_dir"`
	PublicBaseURL string `json:"public_base_url,omitempty"`
	Concurrency   int    `json:"concurrency,omitempty"`
}

// Type implements command.Message.
func (ExportCommand) Type() string { return exportMessageType }

// Validate ensures the message names a source and a target.
func (m ExportCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.SourceID) == "" {
		errs["source_id"] = validation.NewError("egress.export.source_id_required", "source_id is required")
	}
	if strings.TrimSpace(m.TargetDir) == "" {
		errs["target_dir"] = validation.NewError("egress.export.target_dir_required", "target_dir is required")
	}
	if base := strings.TrimSpace(m.PublicBaseURL); base != "" &&
		!strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		errs["public_base_url"] = validation.NewError("egress.export.public_base_url_invalid", "public_base_url must be an absolute http(s) url")
	}
	if m.Concurrency < 0 {
		errs["concurrency"] = validation.NewError("egress.export.concurrency_invalid", "concurrency cannot be negative")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// VerifyCommand requests a consistency check of an export directory.
type VerifyCommand struct {
	TargetDir string `json:"target_dir"`
}

// Type implements command.Message.
func (VerifyCommand) Type() string { return verifyMessageType }

// Validate satisfies command.Message.
func (m VerifyCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TargetDir, validation.Required.Error("target_dir is required")),
	)
}
