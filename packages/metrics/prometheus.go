// Package metrics exports trial results in the Prometheus text exposition
// format, for the node_exporter textfile collector or a push gateway.
package metrics

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/output"
)

// Totals are the counters kept for one trial name
type Totals struct {
	Tests    int
	Failures int
	Outcomes int
	Failing  int
}

// PrometheusExporter collects trials and writes them as gauges
type PrometheusExporter struct {
	mu     sync.Mutex
	trials map[string]*Totals
	now    func() time.Time
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithClock overrides the source of the run timestamp gauge
func WithClock(now func() time.Time) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.now = now
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		trials: make(map[string]*Totals),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add records a trial. Trials sharing a name are summed into one series.
func (p *PrometheusExporter) Add(t trial.Trial) {
	p.mu.Lock()
	defer p.mu.Unlock()

	totals, ok := p.trials[t.Name()]
	if !ok {
		totals = &Totals{}
		p.trials[t.Name()] = totals
	}
	outcomes, failing := trial.Counted(t)
	totals.Tests += t.TestCount()
	totals.Failures += t.FailureCount()
	totals.Outcomes += outcomes
	totals.Failing += failing
}

// WriteTo writes every collected trial in text exposition format
func (p *PrometheusExporter) WriteTo(w io.Writer) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.trials))
	for name := range p.trials {
		names = append(names, name)
	}
	sort.Strings(names)

	var b bytes.Buffer
	gauge := func(metric, help string, value func(*Totals) int) {
		fmt.Fprintf(&b, "# HELP %s %s\n", metric, help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", metric)
		for _, name := range names {
			fmt.Fprintf(&b, "%s{trial=\"%s\"} %d\n", metric, sanitizeLabel(name), value(p.trials[name]))
		}
		b.WriteByte('\n')
	}

	gauge("trialxml_trial_tests", "Tests declared by the trial",
		func(t *Totals) int { return t.Tests })
	gauge("trialxml_trial_failures", "Failures declared by the trial",
		func(t *Totals) int { return t.Failures })
	gauge("trialxml_trial_outcomes", "Outcomes reported by the trial",
		func(t *Totals) int { return t.Outcomes })
	gauge("trialxml_trial_failing_outcomes", "Outcomes that did not pass",
		func(t *Totals) int { return t.Failing })
	gauge("trialxml_trial_passed", "1 if the trial has no failures, 0 otherwise",
		func(t *Totals) int {
			if t.Failures == 0 && t.Failing == 0 {
				return 1
			}
			return 0
		})

	fmt.Fprintf(&b, "# HELP trialxml_last_run_timestamp_seconds Time the metrics were written\n")
	fmt.Fprintf(&b, "# TYPE trialxml_last_run_timestamp_seconds gauge\n")
	fmt.Fprintf(&b, "trialxml_last_run_timestamp_seconds %d\n", p.now().Unix())

	return b.WriteTo(w)
}

// WriteFile replaces path with the current metrics. The textfile collector
// must never see a partial file, so the write is atomic.
func (p *PrometheusExporter) WriteFile(path string) error {
	var b bytes.Buffer
	if _, err := p.WriteTo(&b); err != nil {
		return err
	}
	return output.WriteFile(path, b.Bytes())
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
