package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/output"
	"github.com/spf13/cobra"
)

var inspectOutputFlag string

var inspectCmd = &cobra.Command{
	Use:   "inspect <report.xml>...",
	Short: "Show the contents of existing JUnit reports",
	Long: `Read JUnit XML reports and print their test cases.

The report can be re-rendered in any output format, which also makes
inspect usable for converting a JUnit report to TAP or JSON.

Examples:
  trialxml inspect reports/TEST-checkout.xml
  trialxml inspect report.xml --output tap`,
	Args: cobra.MinimumNArgs(1),
	RunE: inspectCommand,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutputFlag, "output", "o", "console", "Output format: console, junit, tap, json")
	_ = inspectCmd.RegisterFlagCompletionFunc("output", outputCompletions)
}

func inspectCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	var trials []trial.Trial
	for _, path := range args {
		suite, err := readReport(path)
		if err != nil {
			return exitWith(ExitParseError, err)
		}
		t := suite.Trial()
		for _, problem := range trial.Consistency(t) {
			log.Warnf("%s: %s", path, problem)
		}
		trials = append(trials, t)
	}

	formatter, err := newFormatter(inspectOutputFlag, cmd.OutOrStdout(), cfg)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	for _, t := range trials {
		formatter.FormatTrial(t)
	}
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(); err != nil {
			if errors.Is(err, output.ErrMultipleSuites) {
				return exitWith(ExitUsageError, err)
			}
			return exitWith(ExitOutputError, fmt.Errorf("error writing output: %w", err))
		}
	}
	return nil
}

func readReport(path string) (*output.JUnitTestSuite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	suite, err := output.ParseJUnit(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}
