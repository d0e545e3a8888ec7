// Package trialfile reads trials from YAML or JSON documents.
//
// A document is a single trial, a list of trials, or an object with a
// "trials" list:
//
//	name: checkout
//	outcomes:
//	  - name: shop.Cart.addItem()
//	    passed: true
//	  - name: shop.Cart.removeItem()
//	    passed: false
//	    error: expected <0> got <1>
//
// The optional "tests" and "failures" keys override the counts derived from
// the outcomes. An outcome without "passed" passes unless it has an error.
// Names and messages are stripped of ANSI escapes and characters XML 1.0
// cannot carry.
package trialfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a trial document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrNoTrials is returned when a document holds no trial objects
var ErrNoTrials = errors.New("no trials found in document")

// Document is the serialized form of a trial
type Document struct {
	Name     string            `json:"name" yaml:"name"`
	Tests    *int              `json:"tests,omitempty" yaml:"tests,omitempty"`
	Failures *int              `json:"failures,omitempty" yaml:"failures,omitempty"`
	Outcomes []OutcomeDocument `json:"outcomes" yaml:"outcomes"`
}

// OutcomeDocument is the serialized form of an outcome
type OutcomeDocument struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FormatFromPath picks a format from a file extension. Unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// IsTrialFile reports whether path has a trial document extension
func IsTrialFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads every trial in the file at path
func Load(path string) ([]*trial.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trials, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trials, nil
}

// Parse decodes trials from data in the given format
func Parse(data []byte, format Format) ([]*trial.Summary, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	return ParseJSON(jsonData)
}

// ParseJSON decodes trials from a JSON document
func ParseJSON(data []byte) ([]*trial.Summary, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	var nodes []gjson.Result
	switch {
	case root.IsArray():
		nodes = root.Array()
	case root.Get("trials").IsArray():
		nodes = root.Get("trials").Array()
	case root.IsObject():
		nodes = []gjson.Result{root}
	}

	var trials []*trial.Summary
	for i, node := range nodes {
		t, err := parseTrial(node)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		trials = append(trials, t)
	}
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}
	return trials, nil
}

func parseTrial(node gjson.Result) (*trial.Summary, error) {
	if !node.IsObject() {
		return nil, fmt.Errorf("expected an object, got %s", node.Type)
	}
	outcomes := node.Get("outcomes")
	if !outcomes.Exists() {
		return nil, errors.New(`missing "outcomes"`)
	}
	if !outcomes.IsArray() {
		return nil, errors.New(`"outcomes" must be a list`)
	}

	t := trial.NewSummary(trial.Sanitize(node.Get("name").String()))
	var err error
	outcomes.ForEach(func(_, o gjson.Result) bool {
		if !o.IsObject() {
			err = fmt.Errorf("outcome %d: expected an object", t.TestCount())
			return false
		}
		msg := o.Get("error").String()
		passed := msg == ""
		if p := o.Get("passed"); p.Exists() {
			passed = p.Bool()
		}
		t.Add(trial.TestOutcome{
			TestName: trial.Sanitize(o.Get("name").String()),
			Pass:     passed,
			Error:    trial.Sanitize(msg),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	if v := node.Get("tests"); v.Exists() {
		t.Tests = int(v.Int())
	}
	if v := node.Get("failures"); v.Exists() {
		t.Failures = int(v.Int())
	}
	return t, nil
}

// Validate checks data against the trial document schema. It returns one
// message per violation; an error means the document could not be read at all.
func Validate(data []byte, format Format) ([]string, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	schema := gojsonschema.NewStringLoader(documentSchema)
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var problems []string
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}

// Marshal encodes trials as a document in the given format. A single trial is
// written as a bare object.
func Marshal(format Format, trials ...trial.Trial) ([]byte, error) {
	docs := make([]Document, 0, len(trials))
	for _, t := range trials {
		docs = append(docs, FromTrial(t))
	}

	var v any = docs
	if len(docs) == 1 {
		v = docs[0]
	}
	if format == FormatYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// FromTrial converts a trial to its document form. Counts are only written
// when they differ from what the outcomes imply.
func FromTrial(t trial.Trial) Document {
	doc := Document{
		Name:     t.Name(),
		Outcomes: make([]OutcomeDocument, 0, len(t.Outcomes())),
	}
	for _, o := range t.Outcomes() {
		doc.Outcomes = append(doc.Outcomes, OutcomeDocument{
			Name:   o.Name(),
			Passed: o.Passed(),
			Error:  o.ErrorMessage(),
		})
	}

	tests, failures := trial.Counted(t)
	if t.TestCount() != tests {
		n := t.TestCount()
		doc.Tests = &n
	}
	if t.FailureCount() != failures {
		n := t.FailureCount()
		doc.Failures = &n
	}
	return doc
}

func toJSON(data []byte, format Format) ([]byte, error) {
	if format != FormatYAML {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("converting YAML: %w", err)
	}
	return out, nil
}
