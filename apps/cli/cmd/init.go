package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/trialxml/packages/adapters/trialfile"
	"github.com/abdul-hamid-achik/trialxml/packages/core/config"
	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new trialxml project",
	Long: `Initialize a new trialxml project in the current directory.

This creates:
  - trialxml.yaml        - Configuration file
  - example.trial.yaml   - Example trial file

Examples:
  trialxml init
  trialxml init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

// exampleTrial is written by init to show the trial file layout
func exampleTrial() trial.Trial {
	return trial.NewSummary("example",
		trial.Pass("shop.Cart.addItem()"),
		trial.Fail("shop.Cart.removeItem()", "expected <0> but was <1>"),
		trial.Pass("shop.Checkout.total()"),
	)
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "trialxml.yaml")
	exampleFile := filepath.Join(cwd, "example.trial.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitWith(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.OutputDir = "reports"
	if err := cfg.SaveConfig(configFile); err != nil {
		return exitWith(ExitOutputError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	exampleYAML, err := trialfile.Marshal(trialfile.FormatYAML, exampleTrial())
	if err != nil {
		return fmt.Errorf("failed to encode example trial: %w", err)
	}
	if err := os.WriteFile(exampleFile, exampleYAML, 0644); err != nil {
		return exitWith(ExitOutputError, fmt.Errorf("failed to create example file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  trialxml convert example.trial.yaml --output console")
	fmt.Fprintln(cmd.OutOrStdout(), "  trialxml convert example.trial.yaml")
	return nil
}
