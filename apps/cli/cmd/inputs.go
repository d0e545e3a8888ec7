package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/trialxml/packages/adapters/gotest"
	"github.com/abdul-hamid-achik/trialxml/packages/adapters/trialfile"
	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/logger"
)

// stdinArg reads input from standard input
const stdinArg = "-"

// Input sources accepted by --from
const (
	sourceAuto      = "auto"
	sourceTrialFile = "trialfile"
	sourceGoTest    = "gotest"
)

func validSource(from string) bool {
	switch from {
	case sourceAuto, sourceTrialFile, sourceGoTest:
		return true
	}
	return false
}

// isGoTestFile reports extensions conventionally used for saved go test -json output
func isGoTestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}

func isInputFile(path, from string) bool {
	switch from {
	case sourceGoTest:
		return isGoTestFile(path) || strings.EqualFold(filepath.Ext(path), ".json")
	case sourceTrialFile:
		return trialfile.IsTrialFile(path)
	}
	return isGoTestFile(path) || trialfile.IsTrialFile(path)
}

// sourceFor picks the adapter for one input
func sourceFor(path, from string) string {
	if from != sourceAuto {
		return from
	}
	if path == stdinArg || isGoTestFile(path) {
		return sourceGoTest
	}
	return sourceTrialFile
}

func collectFiles(args []string, from string) ([]string, error) {
	var files []string

	for _, arg := range args {
		if arg == stdinArg {
			files = append(files, arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isInputFile(path, from) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			// Explicitly named files are taken regardless of extension
			files = append(files, arg)
		}
	}

	return files, nil
}

// loadTrials reads every input through the adapter chosen for it
func loadTrials(ctx context.Context, stdin io.Reader, files []string, from string, log *logger.Logger) ([]trial.Trial, error) {
	var trials []trial.Trial

	for _, file := range files {
		var r io.Reader = stdin
		name := "stdin"
		if file != stdinArg {
			f, err := os.Open(file)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
			name = file
		}

		switch sourceFor(file, from) {
		case sourceGoTest:
			res, err := gotest.ParseStream(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if res.Malformed > 0 {
				log.Warnf("%s: skipped %d lines that are not go test -json events", name, res.Malformed)
			}
			if len(res.Trials) == 0 {
				log.Warnf("%s: no test results found", name)
			}
			for _, t := range res.Trials {
				trials = append(trials, t)
			}

		default:
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			format := trialfile.FormatFromPath(file)
			if file == stdinArg {
				format = sniffFormat(data)
			}
			parsed, err := trialfile.Parse(data, format)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			for _, t := range parsed {
				trials = append(trials, t)
			}
		}
		log.Debugf("loaded %s", name)
	}

	for _, t := range trials {
		for _, problem := range trial.Consistency(t) {
			log.Warnf("trial %q: %s", t.Name(), problem)
		}
	}
	return trials, nil
}

// sniffFormat guesses the encoding of a trial document read from stdin
func sniffFormat(data []byte) trialfile.Format {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trialfile.FormatJSON
	}
	return trialfile.FormatYAML
}
