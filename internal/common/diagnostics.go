package common

import (
	"fmt"

	"github.com/bobmcallan/folio/internal/models"
)

// Diagnostics collects the non-fatal notices, warnings and info messages raised
// during one calculation run. The caller creates it, threads it through every
// component, and drains it when the run completes.
type Diagnostics struct {
	entries []models.Diagnostic
	logger  *Logger
}

// NewDiagnostics creates an empty collector. A nil logger discards log output.
func NewDiagnostics(logger *Logger) *Diagnostics {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &Diagnostics{logger: logger}
}

// Add records a diagnostic with the given severity.
func (d *Diagnostics) Add(severity models.Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.entries = append(d.entries, models.Diagnostic{Severity: severity, Message: msg})
	d.logger.Debug().Str("severity", string(severity)).Msg(msg)
}

// Notice records a notice-level diagnostic.
func (d *Diagnostics) Notice(format string, args ...interface{}) {
	d.Add(models.SeverityNotice, format, args...)
}

// Warning records a warning-level diagnostic.
func (d *Diagnostics) Warning(format string, args ...interface{}) {
	d.Add(models.SeverityWarning, format, args...)
}

// Info records an info-level diagnostic.
func (d *Diagnostics) Info(format string, args ...interface{}) {
	d.Add(models.SeverityInfo, format, args...)
}

// Len returns the number of accumulated diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the accumulated diagnostics.
func (d *Diagnostics) Entries() []models.Diagnostic {
	out := make([]models.Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Count returns how many diagnostics of the given severity were recorded.
func (d *Diagnostics) Count(severity models.Severity) int {
	n := 0
	for _, e := range d.entries {
		if e.Severity == severity {
			n++
		}
	}
	return n
}

// Drain returns the accumulated diagnostics and resets the collector.
func (d *Diagnostics) Drain() []models.Diagnostic {
	out := d.entries
	d.entries = nil
	return out
}
