package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/fatih/color"
)

// firstLine returns the first line of s, truncated to maxLen runes
func firstLine(s string, maxLen int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if utf8.RuneCountInString(s) > maxLen {
		return string([]rune(s)[:maxLen]) + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints full failure messages instead of their first line
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatTrial(t trial.Trial) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Trial: "+t.Name()))

	for _, o := range t.Outcomes() {
		if o.Passed() {
			fmt.Fprintf(f.writer, "  %s %s\n", green("✓"), o.Name())
			continue
		}

		fmt.Fprintf(f.writer, "  %s %s\n", red("✗"), o.Name())
		msg := o.ErrorMessage()
		if msg == "" {
			continue
		}
		if !f.verbose {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), firstLine(msg, 120))
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
			fmt.Fprintf(f.writer, "    %s\n", line)
		}
	}

	passed := t.TestCount() - t.FailureCount()
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if t.FailureCount() > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", t.FailureCount())))
	}
	fmt.Fprintf(f.writer, "%d total\n", t.TestCount())

	for _, problem := range trial.Consistency(t) {
		fmt.Fprintf(f.writer, "%s %s\n", yellow("warning:"), problem)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("trialxml"), version)
}
