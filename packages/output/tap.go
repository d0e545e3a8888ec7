package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
)

// TAPFormatter formats trials in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number  int
	trial   string
	name    string
	passed  bool
	message string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatTrial(t trial.Trial) {
	for _, o := range t.Outcomes() {
		f.testCount++
		f.results = append(f.results, tapResult{
			number:  f.testCount,
			trial:   t.Name(),
			name:    o.Name(),
			passed:  o.Passed(),
			message: o.ErrorMessage(),
		})
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are reported by the caller
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush() error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		fmt.Fprintf(f.writer, "  ---\n")
		fmt.Fprintf(f.writer, "  trial: %s\n", escapeYAML(r.trial))
		if r.message != "" {
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.message))
		}
		fmt.Fprintf(f.writer, "  severity: fail\n")
		fmt.Fprintf(f.writer, "  ...\n")
	}

	_, err := fmt.Fprintln(f.writer)
	return err
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`\\") {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", `\n`)
		return "\"" + s + "\""
	}
	return s
}
