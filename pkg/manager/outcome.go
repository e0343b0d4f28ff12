package manager

import (
	"context"
	"time"
)

type Status string

const (
	// StatusSubmitted means both the pre-vote and the combined vote were accepted by the node.
	StatusSubmitted Status = "submitted"
	// StatusSkipped means no plugin contributed, so nothing was sent.
	StatusSkipped Status = "skipped"
	// StatusMissed means a vote was produced but could not be submitted.
	StatusMissed Status = "missed"
)

// Outcome summarizes what happened to one interval.
type Outcome struct {
	Height             int64             `json:"height"`
	Status             Status            `json:"status"`
	Reason             string            `json:"reason,omitempty"`
	Contributors       []string          `json:"contributors,omitempty"`
	Excluded           map[string]string `json:"excluded,omitempty"`
	Modules            []string          `json:"modules,omitempty"`
	PreVoteTxHash      string            `json:"pre_vote_tx_hash,omitempty"`
	CombinedVoteTxHash string            `json:"combined_vote_tx_hash,omitempty"`
	StartedAt          time.Time         `json:"started_at"`
	FinishedAt         time.Time         `json:"finished_at"`
}

func (o *Outcome) exclude(plugin, reason string) {
	if o.Excluded == nil {
		o.Excluded = make(map[string]string)
	}
	o.Excluded[plugin] = reason
}

// Recorder receives the outcome of every processed interval. Record is called from the interval's
// goroutine after processing finishes; it must not block for long.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}
