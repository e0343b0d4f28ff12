package manager

import (
	"context"
	"time"

	"github.com/armon/go-metrics"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/argus-labs/oracle-feeder/pkg/fee"
)

const (
	defaultChainBlockCommitTimeout = 5 * time.Second
	defaultVoteReservedTime        = 3 * time.Second
	defaultBroadcastTimeout        = 5 * time.Second
)

type Options struct {
	ChainBlockCommitTimeout time.Duration // Approximate length of a vote interval
	VoteReservedTime        time.Duration // Part of the interval kept for collecting and submitting
	BroadcastTimeout        time.Duration // Bound on fee estimation plus broadcast of one tx

	PreVoteFee      fee.Policy
	CombinedVoteFee fee.Policy

	// Validator is the operator address the feeder votes for.
	Validator string

	Logger   *zerolog.Logger
	Tracer   trace.Tracer
	Metrics  *metrics.Metrics
	Recorder Recorder // Optional

	// IntervalLogger, if set, derives each interval's logger from the context carrying the
	// interval span. Logger is used otherwise.
	IntervalLogger func(ctx context.Context) zerolog.Logger
}

func newDefaultOptions() Options {
	return Options{
		ChainBlockCommitTimeout: defaultChainBlockCommitTimeout,
		VoteReservedTime:        defaultVoteReservedTime,
		BroadcastTimeout:        defaultBroadcastTimeout,
		PreVoteFee:              fee.Auto(),
		CombinedVoteFee:         fee.Auto(),
		Validator:               "",
		Logger:                  nil,
		Tracer:                  noop.NewTracerProvider().Tracer("manager"),
		Metrics:                 metrics.Default(),
		Recorder:                nil,
		IntervalLogger:          nil,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.ChainBlockCommitTimeout != 0 {
		opt.ChainBlockCommitTimeout = newOpt.ChainBlockCommitTimeout
	}
	if newOpt.VoteReservedTime != 0 {
		opt.VoteReservedTime = newOpt.VoteReservedTime
	}
	if newOpt.BroadcastTimeout != 0 {
		opt.BroadcastTimeout = newOpt.BroadcastTimeout
	}
	if newOpt.PreVoteFee.Kind != fee.PolicyUndefined {
		opt.PreVoteFee = newOpt.PreVoteFee
	}
	if newOpt.CombinedVoteFee.Kind != fee.PolicyUndefined {
		opt.CombinedVoteFee = newOpt.CombinedVoteFee
	}
	if newOpt.Validator != "" {
		opt.Validator = newOpt.Validator
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Tracer != nil {
		opt.Tracer = newOpt.Tracer
	}
	if newOpt.Metrics != nil {
		opt.Metrics = newOpt.Metrics
	}
	if newOpt.Recorder != nil {
		opt.Recorder = newOpt.Recorder
	}
	if newOpt.IntervalLogger != nil {
		opt.IntervalLogger = newOpt.IntervalLogger
	}
}

func (opt *Options) validate() error {
	if opt.ChainBlockCommitTimeout <= opt.VoteReservedTime {
		return eris.Errorf("chain block commit timeout (%s) must exceed vote reserved time (%s)",
			opt.ChainBlockCommitTimeout, opt.VoteReservedTime)
	}
	if opt.VoteReservedTime <= 0 {
		return eris.New("vote reserved time must be positive")
	}
	if opt.BroadcastTimeout <= 0 {
		return eris.New("broadcast timeout must be positive")
	}
	if opt.Validator == "" {
		return eris.New("validator cannot be empty")
	}
	return nil
}
