package model

import (
	"fmt"
	"log/slog"
	"strings"
)

// Warnings collects the recoverable substitutions made during a run so they
// surface in the report as well as in the log.
type Warnings []string

// Add logs msg at warn level with the structured args and records a flat copy.
func (w *Warnings) Add(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
	if len(args) == 0 {
		*w = append(*w, msg)
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	b.WriteString(" (")
	for i := 0; i+1 < len(args); i += 2 {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	b.WriteString(")")
	*w = append(*w, b.String())
}
