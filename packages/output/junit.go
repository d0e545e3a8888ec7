package output

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
)

const (
	// DefaultHostname is reported when no hostname option is given
	DefaultHostname = "localhost"

	xmlHeader   = `<?xml version="1.0" encoding="UTF-8"?>`
	suiteTime   = "0.0"
	caseTime    = "0.001"
	failureType = "AssertionError"
)

// ErrMultipleSuites is returned by Flush when more than one trial would be
// written to a single stream. A JUnit document has exactly one root.
var ErrMultipleSuites = errors.New("junit output holds one trial per document; use an output directory for several")

// xmlEscaper replaces in a single pass, so an ampersand introduced by one
// replacement is never escaped again.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// JUnitFormatter formats trials as JUnit XML
type JUnitFormatter struct {
	writer   io.Writer
	dir      string
	hostname string
	now      func() time.Time
	trials   []trial.Trial
	written  []string
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:   os.Stdout,
		hostname: DefaultHostname,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// JUnitWithDir writes one TEST-<name>.xml file per trial into dir on Flush
func JUnitWithDir(dir string) JUnitOption {
	return func(f *JUnitFormatter) {
		f.dir = dir
	}
}

// WithHostname sets the hostname attribute. Empty keeps the default.
func WithHostname(hostname string) JUnitOption {
	return func(f *JUnitFormatter) {
		if hostname != "" {
			f.hostname = hostname
		}
	}
}

// WithClock overrides the source of the suite timestamp
func WithClock(now func() time.Time) JUnitOption {
	return func(f *JUnitFormatter) {
		if now != nil {
			f.now = now
		}
	}
}

// FormatJUnit renders a single trial as a JUnit XML document
func FormatJUnit(t trial.Trial, opts ...JUnitOption) string {
	return NewJUnitFormatter(opts...).Format(t)
}

// Format renders t as a complete JUnit XML document.
//
// The suite-level tests and failures attributes are taken from the trial's
// declared counts, while each testcase is rendered from its own outcome. The
// two are not reconciled.
func (f *JUnitFormatter) Format(t trial.Trial) string {
	timestamp := f.now().UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteByte('\n')
	fmt.Fprintf(&b, `<testsuite name="%s" tests="%d" skipped="0" failures="%d" errors="0" timestamp="%s" hostname="%s" time="%s">`+"\n",
		EscapeXML(t.Name()), t.TestCount(), t.FailureCount(), timestamp, EscapeXML(f.hostname), suiteTime)
	b.WriteString("  <properties/>\n")

	for _, o := range t.Outcomes() {
		name := o.Name()
		fmt.Fprintf(&b, `  <testcase name="%s" classname="%s" time="%s"`,
			EscapeXML(name), EscapeXML(trial.ClassName(name)), caseTime)

		if o.Passed() {
			b.WriteString(" />\n")
			continue
		}

		msg := EscapeXML(o.ErrorMessage())
		b.WriteString(">\n")
		fmt.Fprintf(&b, `    <failure message="%s" type="%s">%s</failure>`+"\n", msg, failureType, msg)
		b.WriteString("  </testcase>\n")
	}

	b.WriteString("  <system-out><![CDATA[]]></system-out>\n")
	b.WriteString("  <system-err><![CDATA[]]></system-err>\n")
	b.WriteString("</testsuite>\n")
	return b.String()
}

func (f *JUnitFormatter) FormatTrial(t trial.Trial) {
	f.trials = append(f.trials, t)
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors have no place in a testsuite document
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated trials
func (f *JUnitFormatter) Flush() error {
	if f.dir != "" {
		for _, t := range f.trials {
			path := filepath.Join(f.dir, ReportFileName(t.Name()))
			if err := WriteFile(path, []byte(f.Format(t))); err != nil {
				return err
			}
			f.written = append(f.written, path)
		}
		f.trials = nil
		return nil
	}

	if len(f.trials) > 1 {
		return ErrMultipleSuites
	}
	for _, t := range f.trials {
		if _, err := io.WriteString(f.writer, f.Format(t)); err != nil {
			return fmt.Errorf("writing junit report: %w", err)
		}
	}
	f.trials = nil
	return nil
}

// Written returns the files created by Flush when writing to a directory
func (f *JUnitFormatter) Written() []string {
	return f.written
}

// ReportFileName returns the conventional TEST-<name>.xml file name for a trial
func ReportFileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(safe, "._") == "" {
		safe = "trial"
	}
	return "TEST-" + safe + ".xml"
}

// JUnit XML structures used to read reports back

// JUnitTestSuite is a <testsuite> document root
type JUnitTestSuite struct {
	XMLName    xml.Name         `xml:"testsuite"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	Hostname   string           `xml:"hostname,attr,omitempty"`
	Properties *JUnitProperties `xml:"properties"`
	TestCases  []JUnitTestCase  `xml:"testcase"`
	SystemOut  string           `xml:"system-out"`
	SystemErr  string           `xml:"system-err"`
}

// JUnitProperties holds suite-level properties
type JUnitProperties struct {
	Properties []JUnitProperty `xml:"property"`
}

// JUnitProperty is a single name/value property
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase represents a single test case
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure"`
	Error     *JUnitFailure `xml:"error"`
}

// JUnitFailure represents a failure or error element
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// ParseJUnit reads a single <testsuite> document
func ParseJUnit(r io.Reader) (*JUnitTestSuite, error) {
	var suite JUnitTestSuite
	if err := xml.NewDecoder(r).Decode(&suite); err != nil {
		return nil, fmt.Errorf("parsing junit report: %w", err)
	}
	return &suite, nil
}

// Trial adapts a parsed report back into a trial. Declared counts are kept
// as they appear in the document. Testcases carrying an <error> are treated
// as failures.
func (s *JUnitTestSuite) Trial() *trial.Summary {
	out := &trial.Summary{
		TrialName: s.Name,
		Tests:     s.Tests,
		Failures:  s.Failures,
		Results:   make([]trial.Outcome, 0, len(s.TestCases)),
	}
	for _, tc := range s.TestCases {
		failure := tc.Failure
		if failure == nil {
			failure = tc.Error
		}
		if failure == nil {
			out.Results = append(out.Results, trial.Pass(tc.Name))
			continue
		}
		msg := failure.Message
		if msg == "" {
			msg = strings.TrimSpace(failure.Content)
		}
		out.Results = append(out.Results, trial.Fail(tc.Name, msg))
	}
	return out
}
