// Package rvdebug provides the minimal diagnostic-printing helper used by the
// materializer, grounded on the ad-hoc fmt.Fprintf diagnostics
// in SeleniaProject-Orizon's internal/debug package: no structured logging
// library, just a gate plus fmt.Fprintf to an io.Writer.
package rvdebug

import (
	"fmt"
	"io"
)

// Trace writes a formatted diagnostic line to w when enabled is true, and is
// a no-op otherwise. It never returns an error; diagnostic output is
// best-effort and must never perturb compilation.
func Trace(w io.Writer, enabled bool, format string, args ...any) {
	if !enabled || w == nil {
		return
	}

	fmt.Fprintf(w, format, args...)
	fmt.Fprintln(w)
}
