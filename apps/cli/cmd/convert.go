package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/trialxml/packages/core/config"
	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/history"
	"github.com/abdul-hamid-achik/trialxml/packages/logger"
	"github.com/abdul-hamid-achik/trialxml/packages/notify"
	"github.com/abdul-hamid-achik/trialxml/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|directory|->...",
	Short: "Convert trial results into a report",
	Long: `Convert trial results into JUnit XML or another report format.

Inputs are YAML/JSON trial files, or go test -json output (files ending in
.jsonl/.ndjson, or "-" for standard input).

Examples:
  trialxml convert trial.yaml
  trialxml convert trial.yaml --output-file report.xml --hostname ci-01
  go test -json ./... | trialxml convert - --output-dir reports/
  trialxml convert results/ --output tap
  trialxml convert trial.yaml --watch --output console`,
	Args: cobra.MinimumNArgs(1),
	RunE: convertCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	fromFlag          string
	outputFlag        string
	outputFileFlag    string
	outputDirFlag     string
	hostnameFlag      string
	historyFlag       string
	recordFlag        bool
	watchFlag         bool
	failOnFailureFlag bool
	verboseFlag       bool
	metricsFileFlag   string
	notifyOnFlag      string
	slackWebhookFlag  string
	teamsWebhookFlag  string
)

func init() {
	convertCmd.Flags().StringVar(&fromFlag, "from", getEnvString("TRIALXML_FROM", sourceAuto), "Input kind: auto, trialfile, gotest (env: TRIALXML_FROM)")
	convertCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("TRIALXML_OUTPUT", ""), "Output format: junit, console, tap, json (env: TRIALXML_OUTPUT)")
	convertCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("TRIALXML_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: TRIALXML_OUTPUT_FILE)")
	convertCmd.Flags().StringVar(&outputDirFlag, "output-dir", getEnvString("TRIALXML_OUTPUT_DIR", ""), "Write one TEST-<trial>.xml per trial into this directory (env: TRIALXML_OUTPUT_DIR)")
	convertCmd.Flags().StringVar(&hostnameFlag, "hostname", getEnvString("TRIALXML_HOSTNAME", ""), "Hostname reported in JUnit output (default: localhost) (env: TRIALXML_HOSTNAME)")
	convertCmd.Flags().StringVar(&historyFlag, "history", getEnvString("TRIALXML_HISTORY", ""), "History database, e.g. sqlite://.trialxml/history.db (env: TRIALXML_HISTORY)")
	convertCmd.Flags().BoolVar(&recordFlag, "record", getEnvBool("TRIALXML_RECORD", false), "Record generated reports in the history database (env: TRIALXML_RECORD)")
	convertCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch input files and re-render on change")
	convertCmd.Flags().BoolVar(&failOnFailureFlag, "fail-on-failure", getEnvBool("TRIALXML_FAIL_ON_FAILURE", false), "Exit with status 1 when any trial has failures (env: TRIALXML_FAIL_ON_FAILURE)")
	convertCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print full failure messages in console output")
	convertCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("TRIALXML_METRICS_FILE", ""), "Write Prometheus textfile metrics to this path (env: TRIALXML_METRICS_FILE)")
	convertCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("TRIALXML_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: TRIALXML_NOTIFY_ON)")
	convertCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("TRIALXML_SLACK_WEBHOOK", ""), "Slack incoming webhook URL (env: TRIALXML_SLACK_WEBHOOK)")
	convertCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TRIALXML_TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TRIALXML_TEAMS_WEBHOOK)")
	_ = convertCmd.RegisterFlagCompletionFunc("output", outputCompletions)
	_ = convertCmd.RegisterFlagCompletionFunc("from", sourceCompletions)
	_ = convertCmd.RegisterFlagCompletionFunc("notify-on", fixedCompletions("always", "failure", "success", "recovery"))
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatTrial(t trial.Trial)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush() error
}

// loadSettings merges the config file with command line overrides
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, exitWith(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}

	overrides := &config.Config{
		Hostname:     hostnameFlag,
		Output:       outputFlag,
		OutputDir:    outputDirFlag,
		History:      historyFlag,
		LogLevel:     logLevelFlag,
		MetricsFile:  metricsFileFlag,
		NotifyOn:     notifyOnFlag,
		SlackWebhook: slackWebhookFlag,
		TeamsWebhook: teamsWebhookFlag,
	}
	if flags := cmd.Flags(); flags.Lookup("record") != nil && (recordFlag || flags.Changed("record")) {
		overrides.Record = config.BoolPtr(recordFlag)
	}
	if flags := cmd.Flags(); flags.Lookup("fail-on-failure") != nil && (failOnFailureFlag || flags.Changed("fail-on-failure")) {
		overrides.FailOnFailure = config.BoolPtr(failOnFailureFlag)
	}
	if flags := cmd.Flags(); flags.Lookup("verbose") != nil && verboseFlag {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}

	return fileConfig.Merge(overrides), nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	return logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
}

// newFormatter creates the formatter for the configured output format
func newFormatter(format string, w io.Writer, cfg *config.Config) (Formatter, error) {
	switch strings.ToLower(format) {
	case "junit", "":
		opts := []output.JUnitOption{
			output.JUnitWithWriter(w),
			output.WithHostname(cfg.Hostname),
		}
		if cfg.OutputDir != "" {
			opts = append(opts, output.JUnitWithDir(cfg.OutputDir))
		}
		return output.NewJUnitFormatter(opts...), nil
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w)), nil
	case "tap":
		return output.NewTAPFormatter(output.TAPWithWriter(w)), nil
	case "console":
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		), nil
	}
	return nil, fmt.Errorf("unknown output format %q (use junit, console, tap or json)", format)
}

func convertCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	if !validSource(fromFlag) {
		return exitWith(ExitUsageError, fmt.Errorf("unknown input kind %q (use auto, trialfile or gotest)", fromFlag))
	}
	if _, err := newFormatter(cfg.Output, io.Discard, cfg); err != nil {
		return exitWith(ExitUsageError, err)
	}
	if _, err := notify.ParseNotifyOn(cfg.NotifyOn); err != nil {
		return exitWith(ExitUsageError, err)
	}

	files, err := collectFiles(args, fromFlag)
	if err != nil {
		return exitWith(ExitParseError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitParseError, fmt.Errorf("no trial files found"))
	}

	if outputFileFlag != "" {
		if outputDirFlag != "" {
			return exitWith(ExitUsageError, fmt.Errorf("--output-file and --output-dir cannot be used together"))
		}
		// An explicit file wins over an output directory from the config file
		cfg.OutputDir = ""
	}

	if watchFlag && slices.Contains(files, stdinArg) {
		return exitWith(ExitUsageError, fmt.Errorf("--watch cannot be used with standard input"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed, err := runConvert(ctx, cmd, cfg, files, log)
	if err != nil {
		return err
	}

	if watchFlag {
		return watchInputs(ctx, cmd, cfg, files, log)
	}

	if failed > 0 && cfg.GetFailOnFailure() {
		return exitWith(ExitTestFailure, nil)
	}
	return nil
}

// runConvert loads, renders, records and publishes all inputs once. It
// returns the number of trials that contain failures.
func runConvert(ctx context.Context, cmd *cobra.Command, cfg *config.Config, files []string, log *logger.Logger) (int, error) {
	trials, err := loadTrials(ctx, cmd.InOrStdin(), files, fromFlag, log)
	if err != nil {
		return 0, exitWith(ExitParseError, err)
	}

	var buf bytes.Buffer
	formatter, err := newFormatter(cfg.Output, &buf, cfg)
	if err != nil {
		return 0, exitWith(ExitUsageError, err)
	}

	formatter.FormatHeader(version)
	failed := 0
	for _, t := range trials {
		formatter.FormatTrial(t)
		if _, counted := trial.Counted(t); t.FailureCount() > 0 || counted > 0 {
			failed++
		}
	}

	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(); err != nil {
			if errors.Is(err, output.ErrMultipleSuites) {
				return 0, exitWith(ExitUsageError, err)
			}
			return 0, exitWith(ExitOutputError, fmt.Errorf("error writing output: %w", err))
		}
	}

	if outputFileFlag != "" {
		if err := output.WriteFile(outputFileFlag, buf.Bytes()); err != nil {
			return 0, exitWith(ExitOutputError, err)
		}
		log.Infof("wrote %s", outputFileFlag)
	} else if buf.Len() > 0 {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return 0, exitWith(ExitOutputError, fmt.Errorf("error writing output: %w", err))
		}
	}

	var written []string
	if jf, ok := formatter.(*output.JUnitFormatter); ok {
		written = jf.Written()
		for _, path := range written {
			log.Infof("wrote %s", path)
		}
	}

	previousFailed := false
	if cfg.NotifyOn == string(notify.NotifyRecovery) && (cfg.SlackWebhook != "" || cfg.TeamsWebhook != "") {
		previousFailed = lastRunFailed(ctx, cfg, trials, log)
	}

	if cfg.GetRecord() {
		if err := recordTrials(ctx, cfg, trials, written); err != nil {
			log.Warnf("failed to record history: %v", err)
		}
	}

	publish(ctx, cfg, trials, previousFailed, log)

	return failed, nil
}

func recordTrials(ctx context.Context, cfg *config.Config, trials []trial.Trial, written []string) error {
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	format := strings.ToLower(cfg.Output)
	for i, t := range trials {
		path := outputFileFlag
		if i < len(written) {
			path = written[i]
		}
		if _, err := store.Record(ctx, t, format, path); err != nil {
			return err
		}
	}
	return nil
}

// watchInputs re-renders whenever one of the input files is written
func watchInputs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, files []string, log *logger.Logger) error {
	watched := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return exitWith(ExitConfigError, fmt.Errorf("failed to create file watcher: %w", err))
	}
	defer watcher.Close()

	// Watch directories so editors that replace files on save are still seen
	watchedDirs := make(map[string]bool)
	for file := range watched {
		dir := filepath.Dir(file)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Errorf("failed to watch %s: %v", dir, err)
		}
		watchedDirs[dir] = true
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		debounce <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			changed = event.Name
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			fmt.Fprintf(cmd.ErrOrStderr(), "\nFile changed: %s\nRe-rendering...\n\n", changed)
			if _, err := runConvert(ctx, cmd, cfg, files, log); err != nil {
				log.Errorf("%v", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watcher error: %v", err)
		}
	}
}
