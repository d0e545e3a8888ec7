package cmd

import (
	"context"

	"github.com/abdul-hamid-achik/trialxml/packages/core/config"
	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/abdul-hamid-achik/trialxml/packages/history"
	"github.com/abdul-hamid-achik/trialxml/packages/logger"
	"github.com/abdul-hamid-achik/trialxml/packages/metrics"
	"github.com/abdul-hamid-achik/trialxml/packages/notify"
)

// newNotifyManager returns nil when no webhook is configured
func newNotifyManager(cfg *config.Config) (*notify.Manager, error) {
	on, err := notify.ParseNotifyOn(cfg.NotifyOn)
	if err != nil {
		return nil, err
	}

	m := notify.NewManager(on)
	if cfg.SlackWebhook != "" {
		m.AddNotifier(notify.NewSlackNotifier(cfg.SlackWebhook))
	}
	if cfg.TeamsWebhook != "" {
		m.AddNotifier(notify.NewTeamsNotifier(cfg.TeamsWebhook))
	}
	if m.Len() == 0 {
		return nil, nil
	}
	return m, nil
}

// lastRunFailed reports whether the most recent recorded report of any of
// the trials had failures. A missing or unreadable history counts as passing.
func lastRunFailed(ctx context.Context, cfg *config.Config, trials []trial.Trial, log *logger.Logger) bool {
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		log.Debugf("history unavailable: %v", err)
		return false
	}
	defer store.Close()

	for _, t := range trials {
		last, err := store.Last(ctx, t.Name())
		if err != nil {
			log.Debugf("history lookup for %q failed: %v", t.Name(), err)
			continue
		}
		if last != nil && !last.Passed() {
			return true
		}
	}
	return false
}

// publish writes metrics and sends notifications for one conversion.
// Failures here are logged and never change the exit status.
func publish(ctx context.Context, cfg *config.Config, trials []trial.Trial, previousFailed bool, log *logger.Logger) {
	if cfg.MetricsFile != "" {
		exporter := metrics.NewPrometheusExporter()
		for _, t := range trials {
			exporter.Add(t)
		}
		if err := exporter.WriteFile(cfg.MetricsFile); err != nil {
			log.Warnf("failed to write metrics: %v", err)
		} else {
			log.Infof("wrote %s", cfg.MetricsFile)
		}
	}

	manager, err := newNotifyManager(cfg)
	if err != nil {
		log.Warnf("notifications disabled: %v", err)
		return
	}
	if manager == nil {
		return
	}

	summary := notify.Summarize(trials)
	summary.Hostname = cfg.Hostname
	if err := manager.Notify(ctx, summary, previousFailed); err != nil {
		log.Warnf("failed to send notification: %v", err)
	}
}
