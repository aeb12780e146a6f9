// Package output formats CLI results: tables, rates, and status messages.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
)

// Printer writes status messages, coloured when enabled.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// NewPrinter creates a printer writing results to out and diagnostics to err.
func NewPrinter(out, err io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: err, useColors: useColors}
}

// ResolveColors reports whether to colour output. disabled comes from a
// --no-color flag; NO_COLOR and TERM=dumb are honoured as well.
func ResolveColors(disabled bool) bool {
	if disabled {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return !color.NoColor
}

// Out returns the writer for results.
func (p *Printer) Out() io.Writer { return p.out }

// Print prints a plain message.
func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	if p.useColors {
		color.New(color.Bold).Fprintf(p.out, "\n%s\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", title)
}

// Warning prints a warning to the diagnostic writer.
func (p *Printer) Warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

// Error prints an error to the diagnostic writer.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Rate formats an occurrence rate with five decimal places. A missing rate is
// shown as a dash.
func Rate(rate float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(rate, 'f', 5, 64)
}
