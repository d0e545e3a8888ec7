package trialfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/output"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleYAML = `name: Suite1
outcomes:
  - name: a.B.c()
    passed: true
  - name: a.B.d()
    passed: false
    error: expected <1> got <2>
`

func exampleSummary() *trial.Summary {
	return trial.NewSummary("Suite1",
		trial.Pass("a.B.c()"),
		trial.Fail("a.B.d()", "expected <1> got <2>"),
	)
}

func TestParse_YAML(t *testing.T) {
	trials, err := Parse([]byte(exampleYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, trials, 1)

	if diff := cmp.Diff(exampleSummary(), trials[0]); diff != "" {
		t.Errorf("trial mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		names []string
	}{
		{
			name:  "single object",
			input: `{"name": "one", "outcomes": []}`,
			names: []string{"one"},
		},
		{
			name:  "array",
			input: `[{"name": "one", "outcomes": []}, {"name": "two", "outcomes": []}]`,
			names: []string{"one", "two"},
		},
		{
			name:  "trials key",
			input: `{"trials": [{"name": "a", "outcomes": []}, {"name": "b", "outcomes": []}]}`,
			names: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trials, err := ParseJSON([]byte(tt.input))
			require.NoError(t, err)

			var names []string
			for _, tr := range trials {
				names = append(names, tr.Name())
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestParseJSON_PassedDefaults(t *testing.T) {
	input := `{"name": "d", "outcomes": [
		{"name": "no flag"},
		{"name": "error only", "error": "bad"},
		{"name": "explicit", "passed": false}
	]}`

	trials, err := ParseJSON([]byte(input))
	require.NoError(t, err)
	outcomes := trials[0].Outcomes()

	assert.True(t, outcomes[0].Passed())
	assert.False(t, outcomes[1].Passed())
	assert.Equal(t, "bad", outcomes[1].ErrorMessage())
	assert.False(t, outcomes[2].Passed())
	assert.Equal(t, 2, trials[0].FailureCount())
}

func TestParseJSON_CountOverrides(t *testing.T) {
	input := `{"name": "o", "tests": 7, "failures": 3, "outcomes": [{"name": "x", "passed": true}]}`

	trials, err := ParseJSON([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 7, trials[0].TestCount())
	assert.Equal(t, 3, trials[0].FailureCount())
	assert.Len(t, trials[0].Outcomes(), 1)
}

func TestParse_StripsControlCharacters(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"json escape", FormatJSON, `{"name": "s\u0007", "outcomes": [{"name": "a.\u001bb", "error": "\u001b[31mboom\u001b[0m"}]}`},
		{"yaml escape", FormatYAML, "name: \"s\\a\"\noutcomes:\n  - name: \"a.\\eb\"\n    error: \"\\e[31mboom\\e[0m\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trials, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			require.Len(t, trials, 1)

			got := trials[0]
			assert.Equal(t, "s", got.Name())
			require.Len(t, got.Outcomes(), 1)
			assert.Equal(t, "a.b", got.Outcomes()[0].Name())
			assert.Equal(t, "boom", got.Outcomes()[0].ErrorMessage())
			assert.False(t, got.Outcomes()[0].Passed())

			report := output.FormatJUnit(got)
			suite, err := output.ParseJUnit(strings.NewReader(report))
			require.NoError(t, err)
			require.Len(t, suite.TestCases, 1)
			require.NotNil(t, suite.TestCases[0].Failure)
			assert.Equal(t, "boom", suite.TestCases[0].Failure.Message)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"invalid json", `{"name":`, FormatJSON},
		{"invalid yaml", "name: [unclosed", FormatYAML},
		{"empty yaml", "", FormatYAML},
		{"scalar", `42`, FormatJSON},
		{"missing outcomes", `{"name": "x"}`, FormatJSON},
		{"outcomes not list", `{"name": "x", "outcomes": {}}`, FormatJSON},
		{"outcome not object", `{"name": "x", "outcomes": ["a"]}`, FormatJSON},
		{"array of scalars", `[1, 2]`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid yaml", func(t *testing.T) {
		problems, err := Validate([]byte(exampleYAML), FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("valid trials list", func(t *testing.T) {
		problems, err := Validate([]byte(`{"trials": [{"name": "a", "outcomes": [{"name": "x", "passed": true}]}]}`), FormatJSON)
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("wrong types", func(t *testing.T) {
		problems, err := Validate([]byte(`{"name": 5, "outcomes": [{"name": "x", "passed": "yes"}]}`), FormatJSON)
		require.NoError(t, err)
		assert.NotEmpty(t, problems)
	})

	t.Run("negative count", func(t *testing.T) {
		problems, err := Validate([]byte(`{"name": "n", "tests": -1, "outcomes": []}`), FormatJSON)
		require.NoError(t, err)
		assert.NotEmpty(t, problems)
	})

	t.Run("unknown key", func(t *testing.T) {
		problems, err := Validate([]byte(`{"name": "n", "outcomes": [], "extra": true}`), FormatJSON)
		require.NoError(t, err)
		assert.NotEmpty(t, problems)
	})

	t.Run("unreadable", func(t *testing.T) {
		_, err := Validate([]byte("a: [b"), FormatYAML)
		assert.Error(t, err)
	})
}

func TestMarshal_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			original := &trial.Summary{
				TrialName: "rt",
				Results:   []trial.Outcome{trial.Pass("a.b"), trial.Fail("a.c", `quote " and <tag>`)},
				Tests:     5,
				Failures:  1,
			}

			data, err := Marshal(format, original)
			require.NoError(t, err)

			problems, err := Validate(data, format)
			require.NoError(t, err)
			assert.Empty(t, problems)

			trials, err := Parse(data, format)
			require.NoError(t, err)
			require.Len(t, trials, 1)
			if diff := cmp.Diff(original, trials[0]); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromTrial_OmitsDerivedCounts(t *testing.T) {
	doc := FromTrial(exampleSummary())
	assert.Nil(t, doc.Tests)
	assert.Nil(t, doc.Failures)
	assert.Len(t, doc.Outcomes, 2)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trial.yml")
	require.NoError(t, os.WriteFile(path, []byte(exampleYAML), 0644))

	trials, err := Load(path)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, "Suite1", trials[0].Name())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("x.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("x.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("x.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("x"))
	assert.True(t, IsTrialFile("a/b.yaml"))
	assert.False(t, IsTrialFile("a/b.xml"))
}
