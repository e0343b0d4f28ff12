package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/argus-labs/oracle-feeder/pkg/chain"
	"github.com/argus-labs/oracle-feeder/pkg/deadline"
	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/fee"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
)

// Estimator computes the fee for a transaction.
type Estimator interface {
	Estimate(ctx context.Context, policy fee.Policy, msgs ...sdk.Msg) (fee.Fee, error)
}

// Broadcaster signs and submits transactions for the feeder account.
type Broadcaster interface {
	Address() string
	Broadcast(ctx context.Context, txFee fee.Fee, msgs ...sdk.Msg) (chain.BroadcastResult, error)
}

// Manager turns interval end events into votes. It processes at most one interval at a time; events
// that arrive while an interval is in flight are dropped, since a late vote is rejected anyway.
type Manager struct {
	opts        Options
	log         zerolog.Logger
	registry    *plugin.Registry
	aggregator  *vote.Aggregator
	estimator   Estimator
	broadcaster Broadcaster

	state      atomic.Uint32
	lastHeight int64 // only touched by the Run goroutine
	inflight   sync.WaitGroup
}

func New(registry *plugin.Registry, estimator Estimator, broadcaster Broadcaster, opts Options) (*Manager, error) {
	if registry == nil || estimator == nil || broadcaster == nil {
		return nil, eris.New("registry, estimator and broadcaster are required")
	}
	options := newDefaultOptions()
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid manager options")
	}

	log := zerolog.Nop()
	if options.Logger != nil {
		log = *options.Logger
	}

	return &Manager{
		opts:        options,
		log:         log,
		registry:    registry,
		aggregator:  vote.NewAggregator(log),
		estimator:   estimator,
		broadcaster: broadcaster,
	}, nil
}

// State returns the current phase.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Run consumes events until ctx is cancelled or the channel is closed, then waits for the interval
// in flight to finish. This method blocks; run it in a goroutine.
func (m *Manager) Run(ctx context.Context, events <-chan event.IntervalEnd) error {
	defer m.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.handle(ctx, ev)
		}
	}
}

func (m *Manager) handle(ctx context.Context, ev event.IntervalEnd) {
	log := m.log.With().Int64("height", ev.CloseHeight).Logger()

	if ev.CloseHeight <= m.lastHeight {
		log.Debug().Int64("last_height", m.lastHeight).Msg("discarding event for an interval already started")
		m.countDropped("duplicate")
		return
	}
	if !m.state.CompareAndSwap(uint32(StateIdle), uint32(StatePreparing)) {
		log.Warn().Str("state", m.State().String()).Msg("dropping interval end event, previous interval still in progress")
		m.countDropped("busy")
		return
	}
	m.lastHeight = ev.CloseHeight

	iv := NewInterval(ev, time.Now(), m.opts.ChainBlockCommitTimeout, m.opts.VoteReservedTime)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer m.setState(StateIdle)
		m.process(ctx, iv)
	}()
}

// process runs one interval from preparation to submission and records its outcome.
func (m *Manager) process(ctx context.Context, iv Interval) {
	ctx, span := m.opts.Tracer.Start(ctx, "manager.interval", trace.WithAttributes(
		attribute.Int64("height", iv.Height()),
		attribute.Int64("preparation_budget_ms", iv.PreparationBudget.Milliseconds()),
	))
	defer span.End()

	log := m.log
	if m.opts.IntervalLogger != nil {
		log = m.opts.IntervalLogger(ctx)
	}
	log = log.With().Int64("height", iv.Height()).Logger()
	outcome := Outcome{Height: iv.Height(), StartedAt: iv.StartedAt}

	var active []plugin.Plugin
	for _, p := range m.registry.All() {
		if !p.IsStarted() {
			outcome.exclude(p.Name(), "not started")
			continue
		}
		active = append(active, p)
	}

	m.setState(StatePreparing)
	prepared := m.prepare(ctx, log, iv, active, &outcome)

	m.setState(StateCollecting)
	contributions := m.collect(ctx, log, iv, prepared, &outcome)

	m.setState(StateSubmitting)
	agg := m.aggregator.Merge(contributions)
	for _, c := range contributions {
		if len(c.Votes) > 0 {
			outcome.Contributors = append(outcome.Contributors, c.Plugin)
		}
	}
	outcome.Modules = agg.Modules()

	if agg.IsEmpty() {
		outcome.Status = StatusSkipped
		outcome.Reason = "no plugin produced a vote"
		log.Warn().Interface("excluded", outcome.Excluded).Msg("no votes for interval, skipping submission")
	} else {
		m.submit(ctx, log, iv, agg, &outcome)
	}

	outcome.FinishedAt = time.Now()
	span.SetAttributes(attribute.String("status", string(outcome.Status)))
	m.countOutcome(outcome)
	m.record(ctx, log, outcome)
}

type prepared struct {
	plugin plugin.Plugin
	prep   plugin.Preparation
}

type phaseResult[T any] struct {
	value T
	err   error
}

// prepare runs every plugin's Prepare concurrently, each bounded to the preparation deadline, and
// returns the plugins that finished in registration order.
func (m *Manager) prepare(
	ctx context.Context, log zerolog.Logger, iv Interval, plugins []plugin.Plugin, outcome *Outcome,
) []prepared {
	ctx, span := m.opts.Tracer.Start(ctx, "manager.prepare")
	defer span.End()

	results := make([]phaseResult[plugin.Preparation], len(plugins))
	var g errgroup.Group
	for i, p := range plugins {
		g.Go(func() error {
			prep, err := deadline.RunBounded(ctx, iv.PreparationDeadline,
				func(ctx context.Context) (plugin.Preparation, error) {
					return plugin.Prepare(ctx, p, iv.Event, iv.PreparationBudget)
				})
			results[i] = phaseResult[plugin.Preparation]{value: prep, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]prepared, 0, len(plugins))
	for i, p := range plugins {
		err := results[i].err
		switch {
		case err == nil:
			out = append(out, prepared{plugin: p, prep: results[i].value})
		case errors.Is(err, deadline.ErrTimeout):
			log.Warn().Str("plugin", p.Name()).Dur("budget", iv.PreparationBudget).Msg("plugin preparation timed out")
			plugin.NotifyPreparationTimeout(log, p, iv.Event)
			m.exclude(outcome, p.Name(), "prepare", "timeout")
		default:
			log.Error().Err(err).Str("plugin", p.Name()).Msg("plugin preparation failed")
			m.exclude(outcome, p.Name(), "prepare", err.Error())
		}
	}
	return out
}

// collect runs Collect for every prepared plugin concurrently, bounded to the submission deadline.
func (m *Manager) collect(
	ctx context.Context, log zerolog.Logger, iv Interval, plugins []prepared, outcome *Outcome,
) []vote.Contribution {
	ctx, span := m.opts.Tracer.Start(ctx, "manager.collect")
	defer span.End()

	results := make([]phaseResult[vote.ModuleVoteSet], len(plugins))
	var g errgroup.Group
	for i, pp := range plugins {
		g.Go(func() error {
			set, err := deadline.RunBounded(ctx, iv.SubmissionDeadline,
				func(ctx context.Context) (vote.ModuleVoteSet, error) {
					return pp.plugin.Collect(ctx, iv.Event, pp.prep)
				})
			results[i] = phaseResult[vote.ModuleVoteSet]{value: set, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]vote.Contribution, 0, len(plugins))
	for i, pp := range plugins {
		name := pp.plugin.Name()
		err := results[i].err
		switch {
		case err == nil:
			out = append(out, vote.Contribution{Plugin: name, Votes: results[i].value})
		case errors.Is(err, deadline.ErrTimeout):
			log.Warn().Str("plugin", name).Msg("plugin collection timed out")
			m.exclude(outcome, name, "collect", "timeout")
		default:
			log.Error().Err(err).Str("plugin", name).Msg("plugin collection failed")
			m.exclude(outcome, name, "collect", err.Error())
		}
	}
	return out
}

func (m *Manager) exclude(outcome *Outcome, name, phase, reason string) {
	outcome.exclude(name, phase+": "+reason)
	m.countExcluded(name, phase)
}

func (m *Manager) record(ctx context.Context, log zerolog.Logger, outcome Outcome) {
	if m.opts.Recorder == nil {
		return
	}
	// The outcome is still recorded when shutdown interrupted the interval.
	if err := m.opts.Recorder.Record(context.WithoutCancel(ctx), outcome); err != nil {
		log.Error().Err(err).Msg("failed to record interval outcome")
	}
}

func (m *Manager) setState(s State) {
	m.state.Store(uint32(s))
}
