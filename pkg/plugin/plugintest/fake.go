// Package plugintest provides a configurable plugin for exercising the vote pipeline in tests.
package plugintest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
)

var (
	_ plugin.Plugin          = (*Fake)(nil)
	_ plugin.Preparer        = (*Preparing)(nil)
	_ plugin.TimeoutObserver = (*Preparing)(nil)
)

// Fake is a plugin without a prepare step. CollectFn defaults to returning Votes.
type Fake struct {
	lifecycle.Lifecycle

	PluginName string
	Votes      vote.ModuleVoteSet
	CollectFn  func(ctx context.Context, ev event.IntervalEnd, prep plugin.Preparation) (vote.ModuleVoteSet, error)

	collects atomic.Int32
	mu       sync.Mutex
	preps    []plugin.Preparation
}

func (f *Fake) Name() string { return f.PluginName }

func (f *Fake) Start(ctx context.Context) error { return f.StartWith(ctx, nil) }

func (f *Fake) Stop(ctx context.Context) error { return f.StopWith(ctx, nil) }

func (f *Fake) Collect(ctx context.Context, ev event.IntervalEnd, prep plugin.Preparation) (vote.ModuleVoteSet, error) {
	f.collects.Add(1)
	f.mu.Lock()
	f.preps = append(f.preps, prep)
	f.mu.Unlock()
	if f.CollectFn != nil {
		return f.CollectFn(ctx, ev, prep)
	}
	return f.Votes, nil
}

// Collects is the number of Collect calls so far.
func (f *Fake) Collects() int { return int(f.collects.Load()) }

// Preparations returns the values Collect received, in call order.
func (f *Fake) Preparations() []plugin.Preparation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]plugin.Preparation, len(f.preps))
	copy(out, f.preps)
	return out
}

// Preparing is a Fake with a prepare step and a timeout hook. PrepareDelay is ignored if PrepareFn
// is set; a zero PrepareDelay returns immediately.
type Preparing struct {
	Fake

	PrepareDelay time.Duration
	PrepareFn    func(ctx context.Context, ev event.IntervalEnd, budget time.Duration) (plugin.Preparation, error)

	prepares atomic.Int32
	timeouts chan event.IntervalEnd
	once     sync.Once
}

func (p *Preparing) Prepare(ctx context.Context, ev event.IntervalEnd, budget time.Duration) (plugin.Preparation, error) {
	p.prepares.Add(1)
	if p.PrepareFn != nil {
		return p.PrepareFn(ctx, ev, budget)
	}
	if p.PrepareDelay > 0 {
		// Ignores ctx on purpose: the manager must not wait for a plugin that overruns.
		time.Sleep(p.PrepareDelay)
	}
	return ev.CloseHeight, nil
}

func (p *Preparing) OnPreparationTimeout(ev event.IntervalEnd) {
	p.timeoutChan() <- ev
}

// Timeouts delivers every OnPreparationTimeout call. It is buffered so the hook never blocks.
func (p *Preparing) Timeouts() <-chan event.IntervalEnd {
	return p.timeoutChan()
}

// Prepares is the number of Prepare calls so far.
func (p *Preparing) Prepares() int { return int(p.prepares.Load()) }

func (p *Preparing) timeoutChan() chan event.IntervalEnd {
	p.once.Do(func() { p.timeouts = make(chan event.IntervalEnd, 64) })
	return p.timeouts
}
