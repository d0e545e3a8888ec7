package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/abdul-hamid-achik/trialxml/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historyTrialFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously generated reports",
	Long: `List reports recorded with convert --record, newest first.

Examples:
  trialxml history
  trialxml history --trial checkout --limit 5`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("TRIALXML_HISTORY_LIMIT", 20), "Maximum number of entries (env: TRIALXML_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&historyTrialFlag, "trial", "", "Only show reports for this trial")
	historyCmd.Flags().StringVar(&historyFlag, "history", getEnvString("TRIALXML_HISTORY", ""), "History database, e.g. sqlite://.trialxml/history.db (env: TRIALXML_HISTORY)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if historyLimitFlag < 0 {
		return exitWith(ExitUsageError, fmt.Errorf("--limit must not be negative"))
	}

	store, err := history.Open(cmd.Context(), cfg.History)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyTrialFlag, historyLimitFlag)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No reports recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tTRIAL\tTESTS\tFAILURES\tFORMAT\tPATH")
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Trial, e.Tests, e.Failures, e.Format, path)
	}
	return w.Flush()
}
