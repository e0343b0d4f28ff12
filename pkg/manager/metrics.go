package manager

import (
	"github.com/armon/go-metrics"
)

var (
	keyVoteSubmitted   = []string{"vote", "submitted"}
	keyVoteMissed      = []string{"vote", "missed"}
	keyVoteSkipped     = []string{"vote", "skipped"}
	keyIntervalDropped = []string{"interval", "dropped"}
	keyPluginExcluded  = []string{"plugin", "excluded"}
)

func (m *Manager) countOutcome(o Outcome) {
	switch o.Status {
	case StatusSubmitted:
		m.opts.Metrics.IncrCounter(keyVoteSubmitted, 1)
	case StatusMissed:
		m.opts.Metrics.IncrCounter(keyVoteMissed, 1)
	case StatusSkipped:
		m.opts.Metrics.IncrCounter(keyVoteSkipped, 1)
	}
}

func (m *Manager) countDropped(reason string) {
	m.opts.Metrics.IncrCounterWithLabels(keyIntervalDropped, 1, []metrics.Label{{Name: "reason", Value: reason}})
}

func (m *Manager) countExcluded(plugin, phase string) {
	m.opts.Metrics.IncrCounterWithLabels(keyPluginExcluded, 1, []metrics.Label{
		{Name: "plugin", Value: plugin},
		{Name: "phase", Value: phase},
	})
}
