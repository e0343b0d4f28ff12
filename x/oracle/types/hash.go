package types

import (
	"encoding/hex"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/tendermint/tendermint/crypto/tmhash"

	"github.com/argus-labs/oracle-feeder/pkg/vote"
)

// VoteHashSize is the length in bytes of a decoded pre-vote hash.
const VoteHashSize = tmhash.TruncatedSize

// ModuleVotesFromAggregate converts an aggregated vote into message form, ordered by module name
// so the same vote always encodes and hashes the same way.
func ModuleVotesFromAggregate(agg vote.AggregatedVote) []*ModuleVote {
	out := make([]*ModuleVote, 0, len(agg))
	for _, module := range agg.Modules() {
		mv := agg[module]
		nvs := make([]*NamespaceVote, 0, len(mv))
		for _, nv := range mv {
			nvs = append(nvs, &NamespaceVote{Namespace: nv.Namespace, Payload: nv.Payload})
		}
		out = append(out, &ModuleVote{Module: module, NamespaceVotes: nvs})
	}
	return out
}

// VoteHash is the commitment carried by a pre-vote: the hex encoded truncated SHA-256 of
// "salt:votes:validator", votes being the JSON encoding of the module votes sorted by module.
func VoteHash(salt string, votes []*ModuleVote, validator string) (string, error) {
	sorted := make([]*ModuleVote, len(votes))
	copy(sorted, votes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Module < sorted[j].Module })

	bz, err := json.Marshal(sorted)
	if err != nil {
		return "", eris.Wrap(err, "failed to encode votes")
	}
	payload := salt + ":" + string(bz) + ":" + validator
	return hex.EncodeToString(tmhash.SumTruncated([]byte(payload))), nil
}
