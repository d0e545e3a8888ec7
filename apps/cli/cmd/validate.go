package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/trialxml/packages/adapters/gotest"
	"github.com/abdul-hamid-achik/trialxml/packages/adapters/trialfile"
	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/spf13/cobra"
)

var validateFromFlag string

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory|->...",
	Short: "Validate trial files without rendering them",
	Long: `Validate trial files against the trial document schema and check that
declared test and failure counts agree with the outcomes.

go test -json inputs are checked for malformed lines.

Examples:
  trialxml validate trial.yaml
  trialxml validate ./results/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&validateFromFlag, "from", getEnvString("TRIALXML_FROM", sourceAuto), "Input kind: auto, trialfile, gotest (env: TRIALXML_FROM)")
	_ = validateCmd.RegisterFlagCompletionFunc("from", sourceCompletions)
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if !validSource(validateFromFlag) {
		return exitWith(ExitUsageError, fmt.Errorf("unknown input kind %q (use auto, trialfile or gotest)", validateFromFlag))
	}

	files, err := collectFiles(args, validateFromFlag)
	if err != nil {
		return exitWith(ExitParseError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitParseError, fmt.Errorf("no trial files found"))
	}

	hasErrors := false
	for _, file := range files {
		problems, err := validateInput(cmd, file)
		name := file
		if file == stdinArg {
			name = "stdin"
		}
		switch {
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", name, err)
			hasErrors = true
		case len(problems) > 0:
			fmt.Fprintf(cmd.ErrOrStderr(), "Invalid: %s\n", name)
			for _, p := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
			}
			hasErrors = true
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", name)
		}
	}

	if hasErrors {
		return exitWith(ExitParseError, fmt.Errorf("validation failed"))
	}
	return nil
}

// validateInput returns the problems found in one input. An error means the
// input could not be read at all.
func validateInput(cmd *cobra.Command, file string) ([]string, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != stdinArg {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	if sourceFor(file, validateFromFlag) == sourceGoTest {
		res, err := gotest.ParseStream(cmd.Context(), r)
		if err != nil {
			return nil, err
		}
		var problems []string
		if res.Malformed > 0 {
			problems = append(problems, fmt.Sprintf("%d lines are not go test -json events", res.Malformed))
		}
		if len(res.Trials) == 0 {
			problems = append(problems, "no test results found")
		}
		return problems, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	format := trialfile.FormatFromPath(file)
	if file == stdinArg {
		format = sniffFormat(data)
	}

	problems, err := trialfile.Validate(data, format)
	if err != nil || len(problems) > 0 {
		return problems, err
	}

	trials, err := trialfile.Parse(data, format)
	if err != nil {
		return nil, err
	}
	for _, t := range trials {
		for _, p := range trial.Consistency(t) {
			problems = append(problems, fmt.Sprintf("trial %q: %s", t.Name(), p))
		}
	}
	return problems, nil
}
