package trial

import (
	"fmt"
	"strings"
)

// Outcome is the result of a single test as seen by report formatters
type Outcome interface {
	Name() string
	Passed() bool
	ErrorMessage() string
}

// Trial is a named, ordered collection of outcomes with aggregate counts.
// Counts are reported as given; they are not recomputed from Outcomes.
type Trial interface {
	Name() string
	Outcomes() []Outcome
	TestCount() int
	FailureCount() int
}

// TestOutcome is the plain value implementation of Outcome
type TestOutcome struct {
	TestName string
	Pass     bool
	Error    string
}

func (o TestOutcome) Name() string         { return o.TestName }
func (o TestOutcome) Passed() bool         { return o.Pass }
func (o TestOutcome) ErrorMessage() string { return o.Error }

// Pass builds a passing outcome
func Pass(name string) TestOutcome {
	return TestOutcome{TestName: name, Pass: true}
}

// Fail builds a failing outcome with the given message
func Fail(name, message string) TestOutcome {
	return TestOutcome{TestName: name, Error: message}
}

// Summary is the plain value implementation of Trial
type Summary struct {
	TrialName string
	Results   []Outcome
	Tests     int
	Failures  int
}

func (s *Summary) Name() string        { return s.TrialName }
func (s *Summary) Outcomes() []Outcome { return s.Results }
func (s *Summary) TestCount() int      { return s.Tests }
func (s *Summary) FailureCount() int   { return s.Failures }

// NewSummary builds a Summary whose counts are derived from outcomes
func NewSummary(name string, outcomes ...Outcome) *Summary {
	s := &Summary{
		TrialName: name,
		Results:   outcomes,
		Tests:     len(outcomes),
	}
	for _, o := range outcomes {
		if !o.Passed() {
			s.Failures++
		}
	}
	return s
}

// Add appends an outcome and updates the counts
func (s *Summary) Add(o Outcome) {
	s.Results = append(s.Results, o)
	s.Tests++
	if !o.Passed() {
		s.Failures++
	}
}

// Counted returns the number of outcomes and failing outcomes actually present
func Counted(t Trial) (tests, failures int) {
	for _, o := range t.Outcomes() {
		tests++
		if !o.Passed() {
			failures++
		}
	}
	return tests, failures
}

// Consistency lists mismatches between the declared counts of t and its outcomes.
// An empty result means the trial is self-consistent.
func Consistency(t Trial) []string {
	var problems []string
	tests, failures := Counted(t)

	if t.TestCount() < 0 {
		problems = append(problems, fmt.Sprintf("test count is negative (%d)", t.TestCount()))
	}
	if t.FailureCount() < 0 {
		problems = append(problems, fmt.Sprintf("failure count is negative (%d)", t.FailureCount()))
	}
	if t.TestCount() != tests {
		problems = append(problems, fmt.Sprintf("test count %d does not match %d outcomes", t.TestCount(), tests))
	}
	if t.FailureCount() != failures {
		problems = append(problems, fmt.Sprintf("failure count %d does not match %d failing outcomes", t.FailureCount(), failures))
	}
	for i, o := range t.Outcomes() {
		if o.Passed() && o.ErrorMessage() != "" {
			problems = append(problems, fmt.Sprintf("outcome %d (%s) passed but carries an error message", i, o.Name()))
		}
	}
	return problems
}

// ClassName derives the owning class of a dotted test identifier such as
// "pkg.Class.method()". Names without a dot, or whose only usable dot is at
// index 0, are returned unchanged.
func ClassName(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name
	}
	return name[:i]
}
