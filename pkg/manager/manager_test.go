package manager_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/argus-labs/oracle-feeder/pkg/chain"
	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/fee"
	"github.com/argus-labs/oracle-feeder/pkg/manager"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
	"github.com/argus-labs/oracle-feeder/pkg/plugin/plugintest"
	"github.com/argus-labs/oracle-feeder/pkg/testutils"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
	oracletypes "github.com/argus-labs/oracle-feeder/x/oracle/types"
)

var (
	feederAddr    = sdk.AccAddress([]byte("feeder-account-bytes")).String()
	validatorAddr = sdk.ValAddress([]byte("validator-oper-bytes")).String()
)

// fakeChain stands in for both the fee estimator and the signer.
type fakeChain struct {
	preVoteErr  error
	estimateErr error

	// preVoteDelay holds the pre-vote broadcast without watching ctx, like a node that never answers.
	preVoteDelay time.Duration

	mu       sync.Mutex
	msgs     []sdk.Msg
	policies []fee.Policy
}

func (c *fakeChain) Address() string { return feederAddr }

func (c *fakeChain) Estimate(_ context.Context, policy fee.Policy, _ ...sdk.Msg) (fee.Fee, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies = append(c.policies, policy)
	if c.estimateErr != nil {
		return fee.Fee{}, c.estimateErr
	}
	return fee.Fee{Amount: sdk.NewCoins(sdk.NewInt64Coin("stake", 10)), GasLimit: 100000}, nil
}

func (c *fakeChain) Broadcast(_ context.Context, _ fee.Fee, msgs ...sdk.Msg) (chain.BroadcastResult, error) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msgs...)
	n := len(c.msgs)
	c.mu.Unlock()

	if _, ok := msgs[0].(*oracletypes.MsgPreVote); ok {
		time.Sleep(c.preVoteDelay)
		if c.preVoteErr != nil {
			return chain.BroadcastResult{}, c.preVoteErr
		}
	}
	return chain.BroadcastResult{TxHash: fmt.Sprintf("TX%d", n)}, nil
}

func (c *fakeChain) sent() []sdk.Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sdk.Msg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *fakeChain) combinedVote(t *testing.T) *oracletypes.MsgCombinedVote {
	t.Helper()
	for _, msg := range c.sent() {
		if cv, ok := msg.(*oracletypes.MsgCombinedVote); ok {
			return cv
		}
	}
	t.Fatal("no combined vote was broadcast")
	return nil
}

type chanRecorder chan manager.Outcome

func (r chanRecorder) Record(_ context.Context, o manager.Outcome) error {
	r <- o
	return nil
}

type harness struct {
	mgr      *manager.Manager
	chain    *fakeChain
	sink     *metrics.InmemSink
	events   chan event.IntervalEnd
	outcomes chanRecorder
}

func newHarness(t *testing.T, c *fakeChain, opts manager.Options, plugins ...plugin.Plugin) *harness {
	t.Helper()

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(plugins...))
	registry.Seal()

	sink := metrics.NewInmemSink(time.Minute, time.Minute)
	cfg := metrics.DefaultConfig("feeder")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	m, err := metrics.New(cfg, sink)
	require.NoError(t, err)

	log := zerolog.New(zerolog.NewTestWriter(t))
	outcomes := make(chanRecorder, 16)
	opts.Validator = validatorAddr
	opts.Logger = &log
	opts.Metrics = m
	opts.Recorder = outcomes

	mgr, err := manager.New(registry, c, c, opts)
	require.NoError(t, err)

	h := &harness{mgr: mgr, chain: c, sink: sink, events: make(chan event.IntervalEnd), outcomes: outcomes}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx, h.events) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) trigger(t *testing.T, height int64) {
	t.Helper()
	select {
	case h.events <- event.IntervalEnd{CloseHeight: height, ObservedAt: time.Now()}:
	case <-time.After(5 * time.Second):
		t.Fatalf("manager did not accept event %d", height)
	}
}

func (h *harness) outcome(t *testing.T) manager.Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(10 * time.Second):
		t.Fatal("no outcome recorded")
		return manager.Outcome{}
	}
}

func (h *harness) counter(key string) int {
	total := 0
	for _, iv := range h.sink.Data() {
		if v, ok := iv.Counters[key]; ok {
			total += v.Count
		}
	}
	return total
}

func startAll(t *testing.T, plugins ...plugin.Plugin) {
	t.Helper()
	for _, p := range plugins {
		require.NoError(t, p.Start(context.Background()))
	}
}

func votesFor(module, payload string) vote.ModuleVoteSet {
	return vote.ModuleVoteSet{module: {{Namespace: "default", Payload: payload}}}
}

func modulesOf(cv *oracletypes.MsgCombinedVote) []string {
	var out []string
	for _, mv := range cv.ModuleVotes {
		out = append(out, mv.Module)
	}
	return out
}

// Commit timeout 5000ms and reserved time 3000ms leave a 2000ms budget: a 2500ms plugin is excluded
// and a 1000ms plugin is included. Run at a tenth of the scale.
func TestManager_SlowPluginExcludedFromScaledBudget(t *testing.T) {
	t.Parallel()

	fast := &plugintest.Preparing{Fake: plugintest.Fake{PluginName: "fast", Votes: votesFor("fast", "1")}, PrepareDelay: 100 * time.Millisecond}
	slow := &plugintest.Preparing{Fake: plugintest.Fake{PluginName: "slow", Votes: votesFor("slow", "2")}, PrepareDelay: 250 * time.Millisecond}
	startAll(t, fast, slow)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{
		ChainBlockCommitTimeout: 500 * time.Millisecond,
		VoteReservedTime:        300 * time.Millisecond,
	}, fast, slow)

	h.trigger(t, 10)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusSubmitted, o.Status)
	assert.Equal(t, []string{"fast"}, o.Contributors)
	assert.Equal(t, "prepare: timeout", o.Excluded["slow"])
	assert.Equal(t, []string{"fast"}, modulesOf(c.combinedVote(t)))
	assert.Zero(t, slow.Collects())
	assert.Equal(t, []plugin.Preparation{int64(10)}, fast.Preparations())

	select {
	case ev := <-slow.Timeouts():
		assert.Equal(t, int64(10), ev.CloseHeight)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout hook not called")
	}
	select {
	case <-slow.Timeouts():
		t.Fatal("timeout hook called twice")
	case <-time.After(300 * time.Millisecond):
	}
	select {
	case <-fast.Timeouts():
		t.Fatal("timeout hook called for a plugin that finished in time")
	default:
	}

	assert.Equal(t, 1, h.counter("feeder.vote.submitted"))
	assert.Equal(t, 1, h.counter("feeder.plugin.excluded;plugin=slow;phase=prepare"))
}

func TestManager_PluginErrorsAreIsolated(t *testing.T) {
	t.Parallel()

	broken := &plugintest.Fake{PluginName: "broken", CollectFn: func(context.Context, event.IntervalEnd, plugin.Preparation) (vote.ModuleVoteSet, error) {
		return nil, errors.New("upstream down")
	}}
	failsPrepare := &plugintest.Preparing{
		Fake: plugintest.Fake{PluginName: "fails-prepare", Votes: votesFor("p", "x")},
		PrepareFn: func(context.Context, event.IntervalEnd, time.Duration) (plugin.Preparation, error) {
			return nil, errors.New("cannot prepare")
		},
	}
	healthy := &plugintest.Fake{PluginName: "healthy", Votes: votesFor("healthy", "42")}
	startAll(t, broken, failsPrepare, healthy)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{}, broken, failsPrepare, healthy)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusSubmitted, o.Status)
	assert.Equal(t, []string{"healthy"}, o.Contributors)
	assert.Contains(t, o.Excluded["broken"], "upstream down")
	assert.Contains(t, o.Excluded["fails-prepare"], "cannot prepare")
	assert.Zero(t, failsPrepare.Collects())

	cv := c.combinedVote(t)
	require.Len(t, cv.ModuleVotes, 1)
	assert.Equal(t, "42", cv.ModuleVotes[0].NamespaceVotes[0].Payload)
	assert.Equal(t, []plugin.Preparation{plugin.NoPreparation}, healthy.Preparations())
}

func TestManager_NoVotesNoTransaction(t *testing.T) {
	t.Parallel()

	failing := func(name string) *plugintest.Fake {
		return &plugintest.Fake{PluginName: name, CollectFn: func(context.Context, event.IntervalEnd, plugin.Preparation) (vote.ModuleVoteSet, error) {
			return nil, errors.New("nope")
		}}
	}
	a, b := failing("a"), failing("b")
	startAll(t, a, b)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{}, a, b)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusSkipped, o.Status)
	assert.Empty(t, c.sent())
	assert.Equal(t, 1, h.counter("feeder.vote.skipped"))
}

func TestManager_PreVoteFailureSkipsCombinedVote(t *testing.T) {
	t.Parallel()

	p := &plugintest.Fake{PluginName: "p", Votes: votesFor("m", "1")}
	startAll(t, p)

	c := &fakeChain{preVoteErr: errors.New("insufficient fees")}
	h := newHarness(t, c, manager.Options{}, p)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusMissed, o.Status)
	assert.Contains(t, o.Reason, "insufficient fees")
	assert.Empty(t, o.PreVoteTxHash)
	sent := c.sent()
	require.Len(t, sent, 1)
	assert.IsType(t, &oracletypes.MsgPreVote{}, sent[0])
	assert.Equal(t, 1, h.counter("feeder.vote.missed"))
}

func TestManager_FeeEstimationFailureMissesVote(t *testing.T) {
	t.Parallel()

	p := &plugintest.Fake{PluginName: "p", Votes: votesFor("m", "1")}
	startAll(t, p)

	c := &fakeChain{estimateErr: errors.New("simulation failed")}
	h := newHarness(t, c, manager.Options{}, p)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusMissed, o.Status)
	assert.Empty(t, c.sent())
}

func TestManager_SubmitsPreVoteThenRevealingCombinedVote(t *testing.T) {
	t.Parallel()

	p := &plugintest.Fake{PluginName: "p", Votes: vote.ModuleVoteSet{
		"prices": {{Namespace: "btc", Payload: "1"}, {Namespace: "atom", Payload: "2"}},
		"agents": {{Namespace: "n", Payload: "3"}},
	}}
	startAll(t, p)

	c := &fakeChain{}
	manual := fee.Manual(fee.Fee{GasLimit: 5})
	h := newHarness(t, c, manager.Options{PreVoteFee: manual}, p)

	h.trigger(t, 1)
	o := h.outcome(t)
	require.Equal(t, manager.StatusSubmitted, o.Status)
	assert.Equal(t, "TX1", o.PreVoteTxHash)
	assert.Equal(t, "TX2", o.CombinedVoteTxHash)
	assert.Equal(t, []string{"agents", "prices"}, o.Modules)

	sent := c.sent()
	require.Len(t, sent, 2)
	pre, ok := sent[0].(*oracletypes.MsgPreVote)
	require.True(t, ok)
	cv, ok := sent[1].(*oracletypes.MsgCombinedVote)
	require.True(t, ok)

	assert.Equal(t, feederAddr, pre.Feeder)
	assert.Equal(t, validatorAddr, cv.Validator)
	want, err := oracletypes.VoteHash(cv.Salt, cv.ModuleVotes, validatorAddr)
	require.NoError(t, err)
	assert.Equal(t, want, pre.Hash)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.policies, 2)
	assert.Equal(t, fee.PolicyManual, c.policies[0].Kind)
	assert.Equal(t, fee.PolicyAuto, c.policies[1].Kind)
}

func TestManager_LaterRegistrationWins(t *testing.T) {
	t.Parallel()

	first := &plugintest.Fake{PluginName: "first", Votes: votesFor("shared", "from-first")}
	second := &plugintest.Fake{PluginName: "second", Votes: votesFor("shared", "from-second")}
	startAll(t, first, second)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{}, first, second)

	h.trigger(t, 1)
	require.Equal(t, manager.StatusSubmitted, h.outcome(t).Status)

	cv := c.combinedVote(t)
	require.Len(t, cv.ModuleVotes, 1)
	assert.Equal(t, "from-second", cv.ModuleVotes[0].NamespaceVotes[0].Payload)
}

func TestManager_SkipsPluginsNotStarted(t *testing.T) {
	t.Parallel()

	stopped := &plugintest.Fake{PluginName: "stopped", Votes: votesFor("a", "1")}
	running := &plugintest.Fake{PluginName: "running", Votes: votesFor("b", "2")}
	startAll(t, running)

	h := newHarness(t, &fakeChain{}, manager.Options{}, stopped, running)

	h.trigger(t, 1)
	o := h.outcome(t)
	assert.Equal(t, []string{"running"}, o.Contributors)
	assert.Equal(t, "not started", o.Excluded["stopped"])
	assert.Zero(t, stopped.Collects())
}

func TestManager_DropsEventsWhileBusy(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var inflight, maxInflight atomic.Int32
	p := &plugintest.Fake{PluginName: "blocking", CollectFn: func(ctx context.Context, ev event.IntervalEnd, _ plugin.Preparation) (vote.ModuleVoteSet, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			cur := maxInflight.Load()
			if n <= cur || maxInflight.CompareAndSwap(cur, n) {
				break
			}
		}
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return votesFor("m", fmt.Sprint(ev.CloseHeight)), nil
	}}
	startAll(t, p)

	h := newHarness(t, &fakeChain{}, manager.Options{
		ChainBlockCommitTimeout: 20 * time.Second,
		VoteReservedTime:        10 * time.Second,
	}, p)

	h.trigger(t, 1)
	<-entered
	assert.Equal(t, manager.StateCollecting, h.mgr.State())

	h.trigger(t, 2)
	require.Eventually(t, func() bool {
		return h.counter("feeder.interval.dropped;reason=busy") == 1
	}, 5*time.Second, 5*time.Millisecond)

	close(release)
	o := h.outcome(t)
	assert.Equal(t, int64(1), o.Height)

	require.Eventually(t, func() bool { return h.mgr.State() == manager.StateIdle }, 5*time.Second, 5*time.Millisecond)
	h.trigger(t, 3)
	assert.Equal(t, int64(3), h.outcome(t).Height)

	assert.Equal(t, int32(1), maxInflight.Load())
	assert.Equal(t, 2, p.Collects())
}

func TestManager_DiscardsRepeatedEvents(t *testing.T) {
	t.Parallel()

	p := &plugintest.Fake{PluginName: "p", Votes: votesFor("m", "1")}
	startAll(t, p)
	h := newHarness(t, &fakeChain{}, manager.Options{}, p)

	h.trigger(t, 5)
	assert.Equal(t, int64(5), h.outcome(t).Height)
	require.Eventually(t, func() bool { return h.mgr.State() == manager.StateIdle }, 5*time.Second, 5*time.Millisecond)

	h.trigger(t, 5)
	h.trigger(t, 4)
	h.trigger(t, 6)
	assert.Equal(t, int64(6), h.outcome(t).Height)
	assert.Equal(t, 2, h.counter("feeder.interval.dropped;reason=duplicate"))

	select {
	case o := <-h.outcomes:
		t.Fatalf("unexpected outcome for height %d", o.Height)
	default:
	}
	assert.Equal(t, 2, p.Collects())
}

// hangingCollect ignores ctx and returns a vote for module only after delay.
func hangingCollect(module string, delay time.Duration) func(context.Context, event.IntervalEnd, plugin.Preparation) (vote.ModuleVoteSet, error) {
	return func(context.Context, event.IntervalEnd, plugin.Preparation) (vote.ModuleVoteSet, error) {
		time.Sleep(delay)
		return votesFor(module, "late"), nil
	}
}

// Commit timeout 300ms and reserved time 200ms put the submission deadline 300ms after the event; a
// collect still running then is dropped and its late votes are never submitted.
func TestManager_CollectPastSubmissionDeadlineIsExcluded(t *testing.T) {
	t.Parallel()

	hang := &plugintest.Fake{PluginName: "hang", CollectFn: hangingCollect("hang", time.Second)}
	ok := &plugintest.Fake{PluginName: "ok", Votes: votesFor("ok", "1")}
	startAll(t, hang, ok)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{
		ChainBlockCommitTimeout: 300 * time.Millisecond,
		VoteReservedTime:        200 * time.Millisecond,
	}, hang, ok)

	h.trigger(t, 7)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusSubmitted, o.Status)
	assert.Equal(t, []string{"ok"}, o.Contributors)
	assert.Equal(t, "collect: timeout", o.Excluded["hang"])
	assert.Less(t, o.FinishedAt.Sub(o.StartedAt), time.Second)
	assert.Equal(t, []string{"ok"}, modulesOf(c.combinedVote(t)))
	assert.Equal(t, 1, h.counter("feeder.plugin.excluded;plugin=hang;phase=collect"))

	// The late result arrives after the interval was submitted and goes nowhere.
	time.Sleep(time.Second)
	assert.Len(t, c.sent(), 2)
}

func TestManager_BroadcastTimeoutMissesVote(t *testing.T) {
	t.Parallel()

	p := &plugintest.Fake{PluginName: "p", Votes: votesFor("m", "1")}
	startAll(t, p)

	c := &fakeChain{preVoteDelay: 2 * time.Second}
	h := newHarness(t, c, manager.Options{BroadcastTimeout: 100 * time.Millisecond}, p)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusMissed, o.Status)
	assert.Contains(t, o.Reason, "pre-vote not accepted")
	assert.Contains(t, o.Reason, "deadline elapsed")
	assert.Empty(t, o.PreVoteTxHash)
	assert.Empty(t, o.CombinedVoteTxHash)
	assert.Less(t, o.FinishedAt.Sub(o.StartedAt), time.Second)

	sent := c.sent()
	require.Len(t, sent, 1)
	assert.IsType(t, &oracletypes.MsgPreVote{}, sent[0])
	assert.Equal(t, 1, h.counter("feeder.vote.missed"))
}

func TestManager_EmptyVoteSetDoesNotContribute(t *testing.T) {
	t.Parallel()

	empty := &plugintest.Fake{PluginName: "empty", Votes: vote.ModuleVoteSet{}}
	startAll(t, empty)

	c := &fakeChain{}
	h := newHarness(t, c, manager.Options{}, empty)

	h.trigger(t, 1)
	o := h.outcome(t)

	assert.Equal(t, manager.StatusSkipped, o.Status)
	assert.Empty(t, o.Contributors)
	assert.Empty(t, o.Excluded)
	assert.Empty(t, c.sent())
}

func TestManager_IntervalLoggerSeesIntervalSpan(t *testing.T) {
	t.Parallel()

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	spans := make(chan trace.SpanContext, 1)
	p := &plugintest.Fake{PluginName: "p", Votes: votesFor("m", "1")}
	startAll(t, p)

	h := newHarness(t, &fakeChain{}, manager.Options{
		Tracer: provider.Tracer("manager"),
		IntervalLogger: func(ctx context.Context) zerolog.Logger {
			spans <- trace.SpanContextFromContext(ctx)
			return zerolog.New(zerolog.NewTestWriter(t))
		},
	}, p)

	h.trigger(t, 1)
	require.Equal(t, manager.StatusSubmitted, h.outcome(t).Status)

	select {
	case sc := <-spans:
		assert.True(t, sc.IsValid())
	default:
		t.Fatal("interval logger was not used")
	}
}

type behaviour string

const (
	behaveOK             behaviour = "ok"
	behavePrepareError   behaviour = "prepare-error"
	behavePrepareTimeout behaviour = "prepare-timeout"
	behaveCollectError   behaviour = "collect-error"
	behaveCollectTimeout behaviour = "collect-timeout"
)

func behavingPlugin(name string, b behaviour) *plugintest.Preparing {
	p := &plugintest.Preparing{Fake: plugintest.Fake{PluginName: name, Votes: votesFor(name, "v")}}
	switch b {
	case behavePrepareError:
		p.PrepareFn = func(context.Context, event.IntervalEnd, time.Duration) (plugin.Preparation, error) {
			return nil, errors.New("prepare failed")
		}
	case behavePrepareTimeout:
		p.PrepareDelay = 150 * time.Millisecond
	case behaveCollectError:
		p.CollectFn = func(context.Context, event.IntervalEnd, plugin.Preparation) (vote.ModuleVoteSet, error) {
			return nil, errors.New("collect failed")
		}
	case behaveCollectTimeout:
		p.CollectFn = hangingCollect(name, 300*time.Millisecond)
	case behaveOK:
	}
	return p
}

// Every combination of plugin behaviours for two plugins: only the healthy ones contribute, and a
// transaction is sent iff at least one did.
func TestManager_ExhaustiveBehaviours(t *testing.T) {
	t.Parallel()

	behaviours := []behaviour{behaveOK, behavePrepareError, behavePrepareTimeout, behaveCollectError, behaveCollectTimeout}
	g := testutils.NewGen()
	for !g.Done() {
		ba := testutils.Pick(g, behaviours)
		bb := testutils.Pick(g, behaviours)

		t.Run(fmt.Sprintf("%s_%s", ba, bb), func(t *testing.T) {
			t.Parallel()

			a, b := behavingPlugin("a", ba), behavingPlugin("b", bb)
			startAll(t, a, b)
			c := &fakeChain{}
			h := newHarness(t, c, manager.Options{
				ChainBlockCommitTimeout: 100 * time.Millisecond,
				VoteReservedTime:        50 * time.Millisecond,
			}, a, b)

			h.trigger(t, 1)
			o := h.outcome(t)

			var want []string
			for name, bh := range map[string]behaviour{"a": ba, "b": bb} {
				if bh == behaveOK {
					want = append(want, name)
					continue
				}
				assert.Contains(t, o.Excluded, name)
				switch bh {
				case behavePrepareTimeout:
					assert.Equal(t, "prepare: timeout", o.Excluded[name])
				case behaveCollectTimeout:
					assert.Equal(t, "collect: timeout", o.Excluded[name])
				default:
					assert.False(t, strings.HasSuffix(o.Excluded[name], "timeout"))
				}
			}

			if len(want) == 0 {
				assert.Equal(t, manager.StatusSkipped, o.Status)
				assert.Empty(t, c.sent())
				return
			}
			assert.Equal(t, manager.StatusSubmitted, o.Status)
			assert.ElementsMatch(t, want, o.Contributors)
			assert.ElementsMatch(t, want, modulesOf(c.combinedVote(t)))
		})
	}
}

func TestNew_ValidatesOptions(t *testing.T) {
	t.Parallel()

	registry := plugin.NewRegistry()
	c := &fakeChain{}

	_, err := manager.New(registry, c, c, manager.Options{})
	require.Error(t, err, "validator is required")

	_, err = manager.New(registry, c, c, manager.Options{
		Validator:               validatorAddr,
		ChainBlockCommitTimeout: time.Second,
		VoteReservedTime:        2 * time.Second,
	})
	require.Error(t, err)

	_, err = manager.New(nil, c, c, manager.Options{Validator: validatorAddr})
	require.Error(t, err)

	_, err = manager.New(registry, c, c, manager.Options{Validator: validatorAddr})
	require.NoError(t, err)
}

func TestNewInterval(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	iv := manager.NewInterval(event.IntervalEnd{CloseHeight: 9}, now, 5000*time.Millisecond, 3000*time.Millisecond)
	assert.Equal(t, 2000*time.Millisecond, iv.PreparationBudget)
	assert.Equal(t, now.Add(2*time.Second), iv.PreparationDeadline)
	assert.Equal(t, now.Add(5*time.Second), iv.SubmissionDeadline)
	assert.Equal(t, int64(9), iv.Height())
}
