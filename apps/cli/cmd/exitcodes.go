package cmd

import "fmt"

// Exit codes for trialxml CLI
const (
	// ExitSuccess indicates the command completed and no trial failed
	ExitSuccess = 0

	// ExitTestFailure indicates a trial contains failures (with --fail-on-failure)
	ExitTestFailure = 1

	// ExitParseError indicates an input file could not be read or parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitOutputError indicates the report could not be written
	ExitOutputError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code for a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitWith(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}
