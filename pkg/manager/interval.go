package manager

import (
	"time"

	"github.com/argus-labs/oracle-feeder/pkg/event"
)

// Interval is the vote interval being processed. It only lives while its event is handled.
type Interval struct {
	Event     event.IntervalEnd
	StartedAt time.Time

	// PreparationBudget is how long plugins get to prepare.
	PreparationBudget time.Duration
	// PreparationDeadline bounds every Prepare call.
	PreparationDeadline time.Time
	// SubmissionDeadline is when the chain stops accepting votes for the interval.
	SubmissionDeadline time.Time
}

// NewInterval computes the deadlines for an interval that starts at now. Plugins get the commit
// timeout minus the reserved time; the reserved time is left for collecting and submitting.
func NewInterval(ev event.IntervalEnd, now time.Time, commitTimeout, reserved time.Duration) Interval {
	budget := commitTimeout - reserved
	prepDeadline := now.Add(budget)
	return Interval{
		Event:               ev,
		StartedAt:           now,
		PreparationBudget:   budget,
		PreparationDeadline: prepDeadline,
		SubmissionDeadline:  prepDeadline.Add(reserved),
	}
}

// Height identifies the interval.
func (iv Interval) Height() int64 {
	return iv.Event.CloseHeight
}
