package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	noColorFlag  bool
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "trialxml",
	Short: "Turn test results into JUnit XML.",
	Long: `trialxml converts test trial results into JUnit XML reports that CI
dashboards understand. Trials come from YAML/JSON trial files or from
go test -json output, and can also be rendered as console, TAP or JSON.`,
	SilenceUsage: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		// Anything else comes from cobra's argument checks
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exitWith(ExitUsageError, err)
	})

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("TRIALXML_CONFIG", ""), "Path to config file (env: TRIALXML_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("TRIALXML_NO_COLOR", false), "Disable colored output (env: TRIALXML_NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("TRIALXML_LOG_LEVEL", ""), "Log level: trace, debug, info, warn, error (env: TRIALXML_LOG_LEVEL)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
}
