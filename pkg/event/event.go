package event

import (
	"time"
)

// IntervalEnd is the chain notification that a vote interval closed and the next one began.
type IntervalEnd struct {
	// CloseHeight is the block height that closed the interval. It increases strictly from one
	// interval to the next and identifies the interval.
	CloseHeight int64
	// EndTime is the interval end time reported by the chain. Zero when the event omits it.
	EndTime time.Time
	// ObservedAt is when the watcher decoded the event.
	ObservedAt time.Time
}
