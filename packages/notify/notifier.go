// Package notify posts trial summaries to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every conversion
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a trial has failures
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every trial passed
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and when a previously
	// failing trial passes again
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a notification policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	on := NotifyOn(s)
	switch on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	}
	return "", fmt.Errorf("unknown notification policy %q (use always, failure, success or recovery)", s)
}

// maxListed caps the failed tests included in a message
const maxListed = 10

// Summary is what a notification reports about a set of trials
type Summary struct {
	Trials      []string     `json:"trials"`
	TotalTests  int          `json:"total_tests"`
	PassedTests int          `json:"passed_tests"`
	FailedTests int          `json:"failed_tests"`
	Hostname    string       `json:"hostname,omitempty"`
	Failed      []FailedTest `json:"failed,omitempty"`
	Omitted     int          `json:"omitted,omitempty"`
	IsRecovery  bool         `json:"is_recovery,omitempty"`
}

// FailedTest is one failing outcome listed in a notification
type FailedTest struct {
	Trial   string `json:"trial"`
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// Summarize totals the declared counts of trials and lists their failing outcomes
func Summarize(trials []trial.Trial) *Summary {
	s := &Summary{}
	for _, t := range trials {
		s.Trials = append(s.Trials, t.Name())
		s.TotalTests += t.TestCount()
		s.FailedTests += t.FailureCount()
		for _, o := range t.Outcomes() {
			if o.Passed() {
				continue
			}
			if len(s.Failed) == maxListed {
				s.Omitted++
				continue
			}
			s.Failed = append(s.Failed, FailedTest{Trial: t.Name(), Name: o.Name(), Message: firstLine(o.ErrorMessage())})
		}
	}
	s.PassedTests = max(s.TotalTests-s.FailedTests, 0)
	return s
}

// Passed reports whether no trial declared a failure
func (s *Summary) Passed() bool {
	return s.FailedTests == 0 && len(s.Failed) == 0
}

func (s *Summary) title() string {
	switch {
	case !s.Passed():
		n := max(s.FailedTests, len(s.Failed)+s.Omitted)
		return fmt.Sprintf("%d test(s) failed", n)
	case s.IsRecovery:
		return "Tests recovered!"
	}
	return "All tests passed!"
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a conversion
	Notify(ctx context.Context, summary *Summary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of configured notifiers
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// ShouldNotify applies the policy. previousFailed tells whether the last
// recorded run of these trials had failures.
func ShouldNotify(on NotifyOn, summary *Summary, previousFailed bool) bool {
	switch on {
	case NotifyAlways:
		return true
	case NotifyFailure:
		return !summary.Passed()
	case NotifySuccess:
		return summary.Passed()
	case NotifyRecovery:
		return !summary.Passed() || previousFailed
	}
	return false
}

// Notify sends the summary to every notifier if the policy allows it. All
// notifiers are tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *Summary, previousFailed bool) error {
	if !ShouldNotify(m.notifyOn, summary, previousFailed) {
		return nil
	}
	summary.IsRecovery = m.notifyOn == NotifyRecovery && previousFailed && summary.Passed()

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// postJSON sends payload to a webhook and checks the response status
func postJSON(ctx context.Context, client *http.Client, url string, payload any, accepted ...int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if !slices.Contains(accepted, resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
