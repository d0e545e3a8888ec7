package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary JSONSummary `json:"summary"`
	Trials  []JSONTrial `json:"trials"`
	Time    string      `json:"time"`
}

// JSONSummary totals the declared counts of every trial
type JSONSummary struct {
	Trials int `json:"trials"`
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// JSONTrial represents one trial
type JSONTrial struct {
	Name     string     `json:"name"`
	Tests    int        `json:"tests"`
	Failures int        `json:"failures"`
	Outcomes []JSONTest `json:"outcomes"`
	Warnings []string   `json:"warnings,omitempty"`
}

// JSONTest represents a single test outcome
type JSONTest struct {
	Name      string `json:"name"`
	ClassName string `json:"classname"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
}

// JSONFormatter formats trials as JSON
type JSONFormatter struct {
	writer io.Writer
	now    func() time.Time
	trials []JSONTrial
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
		trials: make([]JSONTrial, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatTrial(t trial.Trial) {
	jt := JSONTrial{
		Name:     t.Name(),
		Tests:    t.TestCount(),
		Failures: t.FailureCount(),
		Outcomes: make([]JSONTest, 0, len(t.Outcomes())),
		Warnings: trial.Consistency(t),
	}
	for _, o := range t.Outcomes() {
		jt.Outcomes = append(jt.Outcomes, JSONTest{
			Name:      o.Name(),
			ClassName: trial.ClassName(o.Name()),
			Passed:    o.Passed(),
			Error:     o.ErrorMessage(),
		})
	}
	f.trials = append(f.trials, jt)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are reported by the caller
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	summary := JSONSummary{Trials: len(f.trials)}
	for _, t := range f.trials {
		summary.Total += t.Tests
		summary.Failed += t.Failures
	}
	summary.Passed = summary.Total - summary.Failed

	output := JSONOutput{
		Summary: summary,
		Trials:  f.trials,
		Time:    f.now().UTC().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
