package vote

import "sort"

// NamespaceVote is one opaque payload a plugin submits under a namespace of a module.
type NamespaceVote struct {
	Namespace string `json:"namespace"`
	Payload   string `json:"payload"`
}

// ModuleVote is the ordered list of namespace votes for one oracle module.
type ModuleVote []NamespaceVote

// ModuleVoteSet is what a single plugin contributes for an interval. Module names are unique
// within one set but may collide across plugins.
type ModuleVoteSet map[string]ModuleVote

// AggregatedVote is the merged vote of every contributing plugin; it is the payload of the
// pre-vote hash and of the combined-vote.
type AggregatedVote map[string]ModuleVote

// Modules returns the module names in lexical order.
func (v AggregatedVote) Modules() []string {
	modules := make([]string, 0, len(v))
	for m := range v {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

// IsEmpty reports whether no plugin contributed anything.
func (v AggregatedVote) IsEmpty() bool {
	return len(v) == 0
}
