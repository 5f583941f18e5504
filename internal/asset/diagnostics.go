package asset

import (
	"fmt"
	"log/slog"
)

// Advisory codes. None of them abort a pass.
const (
	CodeMissingTexture   = "missing_texture"
	CodeMissingAttribute = "missing_attribute"
	CodeSurfacePadded    = "surface_padded"
	CodeWeightsTruncated = "weights_truncated"
	CodeCollisionSkipped = "collision_skipped"
	CodeYUpSource        = "y_up_source"
	CodeUnknownChannel   = "unknown_channel"
	CodeForcedMode       = "forced_mode"
	CodeNoClips          = "no_clips"
)

// Diagnostic is a non-fatal note about the pass.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Code + ": " + d.Message
}

// Diagnostics collects advisories and logs each one at warn level.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	Logger *slog.Logger
	items  []Diagnostic
}

// NewDiagnostics returns a collector logging to logger (slog.Default when nil).
func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{Logger: logger}
}

// Addf records an advisory.
func (d *Diagnostics) Addf(code, format string, args ...any) {
	if d == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	d.items = append(d.items, Diagnostic{Code: code, Message: msg})
	if d.Logger != nil {
		d.Logger.Warn(msg, "code", code)
	}
}

// Items returns the advisories in the order they were added.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.items
}

// Has reports whether an advisory with code was recorded.
func (d *Diagnostics) Has(code string) bool {
	for _, it := range d.Items() {
		if it.Code == code {
			return true
		}
	}
	return false
}
