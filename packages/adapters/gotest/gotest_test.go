package gotest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestParse_PassAndFail(t *testing.T) {
	input := lines(
		`{"Action":"start","Package":"example.com/pkg"}`,
		`{"Action":"run","Package":"example.com/pkg","Test":"TestFoo"}`,
		`{"Action":"output","Package":"example.com/pkg","Test":"TestFoo","Output":"=== RUN   TestFoo\n"}`,
		`{"Action":"output","Package":"example.com/pkg","Test":"TestFoo","Output":"--- PASS: TestFoo (0.00s)\n"}`,
		`{"Action":"pass","Package":"example.com/pkg","Test":"TestFoo","Elapsed":0.01}`,
		`{"Action":"run","Package":"example.com/pkg","Test":"TestBar"}`,
		`{"Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"=== RUN   TestBar\n"}`,
		`{"Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"    bar_test.go:12: expected <1> got <2>\n"}`,
		`{"Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"--- FAIL: TestBar (0.00s)\n"}`,
		`{"Action":"fail","Package":"example.com/pkg","Test":"TestBar","Elapsed":0.02}`,
		`{"Action":"output","Package":"example.com/pkg","Output":"FAIL\n"}`,
		`{"Action":"fail","Package":"example.com/pkg","Elapsed":0.5}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Malformed)
	require.Len(t, res.Trials, 1)

	want := trial.NewSummary("example.com/pkg",
		trial.Pass("example.com/pkg.TestFoo"),
		trial.Fail("example.com/pkg.TestBar", "bar_test.go:12: expected <1> got <2>"),
	)
	if diff := cmp.Diff(want, res.Trials[0]); diff != "" {
		t.Errorf("trial mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "example.com/pkg", trial.ClassName(res.Trials[0].Outcomes()[0].Name()))
}

func TestParse_MultiplePackagesKeepOrder(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"b/two","Test":"TestB"}`,
		`{"Action":"run","Package":"a/one","Test":"TestA"}`,
		`{"Action":"pass","Package":"a/one","Test":"TestA"}`,
		`{"Action":"pass","Package":"b/two","Test":"TestB"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, res.Trials, 2)
	assert.Equal(t, "b/two", res.Trials[0].Name())
	assert.Equal(t, "a/one", res.Trials[1].Name())
}

func TestParse_SkippedAndSubtests(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestParent"}`,
		`{"Action":"run","Package":"p","Test":"TestParent/child"}`,
		`{"Action":"pass","Package":"p","Test":"TestParent/child"}`,
		`{"Action":"pass","Package":"p","Test":"TestParent"}`,
		`{"Action":"run","Package":"p","Test":"TestSkipped"}`,
		`{"Action":"skip","Package":"p","Test":"TestSkipped"}`,
		`{"Action":"pass","Package":"p"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, res.Trials, 1)

	var names []string
	for _, o := range res.Trials[0].Outcomes() {
		names = append(names, o.Name())
	}
	assert.Equal(t, []string{"p.TestParent", "p.TestParent/child"}, names)
	assert.Equal(t, 2, res.Trials[0].TestCount())
}

func TestParse_PackageFailureWithoutTests(t *testing.T) {
	input := lines(
		`{"Action":"output","Package":"broken","Output":"# broken\n"}`,
		`{"Action":"output","Package":"broken","Output":"./x.go:3:1: syntax error\n"}`,
		`{"Action":"fail","Package":"broken"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, res.Trials, 1)

	o := res.Trials[0].Outcomes()[0]
	assert.Equal(t, "broken."+PackageOutcome, o.Name())
	assert.False(t, o.Passed())
	assert.Equal(t, "# broken\n./x.go:3:1: syntax error", o.ErrorMessage())
}

func TestParse_UnfinishedTestInFailedPackage(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestPanics"}`,
		`{"Action":"output","Package":"p","Test":"TestPanics","Output":"panic: boom\n"}`,
		`{"Action":"fail","Package":"p"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, res.Trials, 1)
	require.Equal(t, 1, res.Trials[0].TestCount())

	o := res.Trials[0].Outcomes()[0]
	assert.Equal(t, "p.TestPanics", o.Name())
	assert.Equal(t, "panic: boom", o.ErrorMessage())
}

func TestParse_FailWithoutOutput(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestQuiet"}`,
		`{"Action":"fail","Package":"p","Test":"TestQuiet"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "test failed", res.Trials[0].Outcomes()[0].ErrorMessage())
}

func TestParse_MalformedLines(t *testing.T) {
	input := lines(
		`not json`,
		``,
		`{"Action":"pass","Package":"p","Test":"TestA"}`,
		`{"no":"action"}`,
	)

	res, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Malformed)
	require.Len(t, res.Trials, 1)
}

func TestParse_EmptyInput(t *testing.T) {
	res, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Trials)
}

func TestParseStream_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ParseStream(ctx, pr)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ParseStream did not return after cancel")
	}
}

func TestParse_DottedSubtestKeepsClassName(t *testing.T) {
	tests := []struct {
		name     string
		test     string
		expected string
	}{
		{"plain", "TestLoad", "example.com/p.TestLoad"},
		{"file subtest", "TestLoad/config.yaml", "example.com/p.TestLoad/config_yaml"},
		{"version subtest", "TestParse/v1.2.3", "example.com/p.TestParse/v1_2_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := lines(`{"Action":"pass","Package":"example.com/p","Test":"` + tt.test + `"}`)
			res, err := Parse([]byte(input))
			require.NoError(t, err)
			require.Len(t, res.Trials, 1)

			name := res.Trials[0].Outcomes()[0].Name()
			assert.Equal(t, tt.expected, name)
			assert.Equal(t, "example.com/p", trial.ClassName(name))
		})
	}
}
