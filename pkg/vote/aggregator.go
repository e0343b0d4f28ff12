package vote

import (
	"github.com/rs/zerolog"
)

// Contribution is the vote set one plugin produced, tagged with the plugin's name.
type Contribution struct {
	Plugin string
	Votes  ModuleVoteSet
}

// Aggregator merges plugin contributions into a single vote.
type Aggregator struct {
	log zerolog.Logger
}

func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{log: log}
}

// Merge combines contributions given in plugin registration order. When two plugins produce the
// same module the later one replaces the earlier one's entry wholesale and a configuration warning
// is logged; the oracle schema assigns each module to exactly one plugin. Namespace votes inside
// a module keep the order the plugin gave them.
func (a *Aggregator) Merge(contributions []Contribution) AggregatedVote {
	merged := make(AggregatedVote)
	owner := make(map[string]string)

	for _, c := range contributions {
		for module, mv := range c.Votes {
			if prev, ok := owner[module]; ok {
				a.log.Warn().
					Str("module", module).
					Str("overridden_plugin", prev).
					Str("plugin", c.Plugin).
					Msg("module produced by more than one plugin, later registration wins")
			}
			cp := make(ModuleVote, len(mv))
			copy(cp, mv)
			merged[module] = cp
			owner[module] = c.Plugin
		}
	}
	return merged
}
