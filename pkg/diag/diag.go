// Package diag formats compiler diagnostics to standard error in the
// `<filename>: line <n>: <severity>: <text>` shape required by spec.md §6,
// with optional ANSI color as cosmetic decoration only (never load-bearing
// for exit codes or message text), matching the teacher's direct
// fmt.Fprintf(os.Stderr, ...) style in compile.go.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Severity distinguishes fatal errors from accumulating warnings
// (spec.md §7).
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Sink collects diagnostics for one compilation and writes them to w.
// ErrorCount lets the driver decide the process exit code.
type Sink struct {
	w          io.Writer
	filename   string
	errorColor *color.Color
	warnColor  *color.Color
	ErrorCount int
	WarnCount  int
}

// NewSink creates a Sink writing to os.Stderr, enabling color only when
// stderr is a terminal.
func NewSink(filename string) *Sink {
	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	s := &Sink{w: os.Stderr, filename: filename}
	s.errorColor = color.New(color.FgRed, color.Bold)
	s.warnColor = color.New(color.FgYellow)
	s.errorColor.EnableColor()
	s.warnColor.EnableColor()
	if !tty {
		s.errorColor.DisableColor()
		s.warnColor.DisableColor()
	}
	return s
}

// Report writes one diagnostic line and updates the running counts.
func (s *Sink) Report(sev Severity, line int, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c := s.warnColor
	if sev == Error {
		c = s.errorColor
		s.ErrorCount++
	} else {
		s.WarnCount++
	}
	prefix := fmt.Sprintf("%s: line %d: ", s.filename, line)
	fmt.Fprintf(s.w, "%s%s: %s\n", prefix, c.Sprint(sev), text)
}

func (s *Sink) Error(line int, format string, args ...any) {
	s.Report(Error, line, format, args...)
}

func (s *Sink) Warn(line int, format string, args ...any) {
	s.Report(Warning, line, format, args...)
}

// HasErrors reports whether any Error-severity diagnostic was reported.
func (s *Sink) HasErrors() bool { return s.ErrorCount > 0 }
