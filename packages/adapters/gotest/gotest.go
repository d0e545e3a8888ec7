// Package gotest turns `go test -json` output into trials, one per package.
//
// Each test becomes an outcome named "<import path>.<TestName>", so the
// derived JUnit classname is the package import path. Dots inside test names
// are replaced with underscores to keep it that way. Skipped tests are left
// out. A package that fails without running any test yields a single failing
// outcome carrying the package output.
package gotest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
)

// Event is a single line of `go test -json` output
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"` // start, run, pass, fail, skip, output, pause, cont, bench
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

const (
	actionPass   = "pass"
	actionFail   = "fail"
	actionSkip   = "skip"
	actionOutput = "output"

	// PackageOutcome is the test name used for package-level failures
	PackageOutcome = "[package]"

	maxLineSize = 1024 * 1024
)

// Result is the outcome of parsing a stream
type Result struct {
	Trials    []*trial.Summary
	Malformed int // lines that were not valid JSON events
}

// Parse is a convenience for parsing from a byte slice
func Parse(data []byte) (*Result, error) {
	return ParseStream(context.Background(), strings.NewReader(string(data)))
}

// scanResult carries a scanned line or terminal error from the scanner goroutine
type scanResult struct {
	line []byte
	err  error
}

// ParseStream reads NDJSON events from r until EOF or ctx is cancelled.
//
// On cancellation r is closed when it implements io.Closer so the reading
// goroutine can exit; otherwise the caller must close the underlying reader.
func ParseStream(ctx context.Context, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines := make(chan scanResult)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			cp := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- scanResult{line: cp}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	agg := newAggregator()
	result := &Result{}
	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, ctx.Err()
		case res, ok := <-lines:
			if !ok {
				result.Trials = agg.trials()
				return result, nil
			}
			if res.err != nil {
				return nil, fmt.Errorf("scanning test output: %w", res.err)
			}
			line := strings.TrimSpace(string(res.line))
			if line == "" {
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(line), &event); err != nil || event.Action == "" {
				result.Malformed++
				continue
			}
			agg.process(event)
		}
	}
}

type aggregator struct {
	packages map[string]*pkgState
	order    []string
}

type pkgState struct {
	name      string
	failed    bool
	tests     map[string]*testState
	testOrder []string
	output    []string
}

type testState struct {
	name   string
	status string
	output []string
}

func newAggregator() *aggregator {
	return &aggregator{packages: make(map[string]*pkgState)}
}

func (a *aggregator) pkg(name string) *pkgState {
	if p, ok := a.packages[name]; ok {
		return p
	}
	p := &pkgState{name: name, tests: make(map[string]*testState)}
	a.packages[name] = p
	a.order = append(a.order, name)
	return p
}

func (p *pkgState) test(name string) *testState {
	if ts, ok := p.tests[name]; ok {
		return ts
	}
	ts := &testState{name: name}
	p.tests[name] = ts
	p.testOrder = append(p.testOrder, name)
	return ts
}

func (a *aggregator) process(e Event) {
	p := a.pkg(e.Package)

	if e.Test == "" {
		switch e.Action {
		case actionFail:
			p.failed = true
		case actionOutput:
			if line := strings.TrimRight(e.Output, "\n"); line != "" {
				p.output = append(p.output, line)
			}
		}
		return
	}

	ts := p.test(e.Test)
	switch e.Action {
	case actionPass, actionFail, actionSkip:
		ts.status = e.Action
	case actionOutput:
		if line := strings.TrimRight(e.Output, "\n"); line != "" && !isFramingLine(line) {
			ts.output = append(ts.output, line)
		}
	}
}

// isFramingLine reports lines that go test prints around every test
func isFramingLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS", "--- FAIL", "--- SKIP"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func (a *aggregator) trials() []*trial.Summary {
	var trials []*trial.Summary
	for _, name := range a.order {
		p := a.packages[name]
		t := trial.NewSummary(trial.Sanitize(name))

		for _, testName := range p.testOrder {
			ts := p.tests[testName]
			id := outcomeID(name, testName)
			switch ts.status {
			case actionPass:
				t.Add(trial.Pass(id))
			case actionFail:
				t.Add(trial.Fail(id, failureMessage(ts.output, "test failed")))
			case actionSkip:
				// not representable in the report
			default:
				// Never finished: the package panicked or timed out mid-test
				if p.failed {
					t.Add(trial.Fail(id, failureMessage(append(ts.output, p.output...), "test did not complete")))
				}
			}
		}

		if p.failed && t.FailureCount() == 0 {
			t.Add(trial.Fail(trial.Sanitize(name)+"."+PackageOutcome, failureMessage(p.output, "package failed")))
		}
		if t.TestCount() == 0 {
			continue
		}
		trials = append(trials, t)
	}
	return trials
}

// outcomeID joins package and test so that the derived classname stays the
// import path. Dots in subtest names such as "TestLoad/config.yaml" would
// otherwise move the class boundary, so they become underscores.
func outcomeID(pkg, test string) string {
	return trial.Sanitize(pkg + "." + strings.ReplaceAll(test, ".", "_"))
}

func failureMessage(lines []string, fallback string) string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.TrimPrefix(strings.TrimPrefix(line, "    "), "\t"))
	}
	msg := trial.Sanitize(strings.TrimSpace(strings.Join(cleaned, "\n")))
	if msg == "" {
		return fallback
	}
	return msg
}
