package plugin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
)

// Preparation is whatever a plugin's Prepare returned for an interval. The manager hands it back,
// untouched, to the same plugin's Collect.
type Preparation any

type noPreparation struct{}

// NoPreparation is passed to Collect for plugins that do not implement Preparer.
var NoPreparation Preparation = noPreparation{} //nolint:gochecknoglobals // sentinel

// Plugin is a data-collection module. Name must be unique within a Registry.
type Plugin interface {
	lifecycle.Service

	Collect(ctx context.Context, ev event.IntervalEnd, prep Preparation) (vote.ModuleVoteSet, error)
}

// Preparer is implemented by plugins that need to do work before the submission window opens,
// such as fetching data from a slow upstream. budget is the time the plugin has; ctx is cancelled
// when it runs out.
type Preparer interface {
	Prepare(ctx context.Context, ev event.IntervalEnd, budget time.Duration) (Preparation, error)
}

// TimeoutObserver is implemented by plugins that want to know their Prepare missed the deadline.
type TimeoutObserver interface {
	OnPreparationTimeout(ev event.IntervalEnd)
}

// Prepare runs p's Prepare step, or returns NoPreparation if p has none.
func Prepare(ctx context.Context, p Plugin, ev event.IntervalEnd, budget time.Duration) (Preparation, error) {
	if preparer, ok := p.(Preparer); ok {
		return preparer.Prepare(ctx, ev, budget)
	}
	return NoPreparation, nil
}

// NotifyPreparationTimeout calls p's timeout hook in its own goroutine if p has one. A panicking
// hook is logged and otherwise ignored.
func NotifyPreparationTimeout(log zerolog.Logger, p Plugin, ev event.IntervalEnd) {
	observer, ok := p.(TimeoutObserver)
	if !ok {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("plugin", p.Name()).Interface("panic", r).Msg("preparation timeout hook panicked")
			}
		}()
		observer.OnPreparationTimeout(ev)
	}()
}
