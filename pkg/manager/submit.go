package manager

import (
	"context"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/argus-labs/oracle-feeder/pkg/chain"
	"github.com/argus-labs/oracle-feeder/pkg/deadline"
	"github.com/argus-labs/oracle-feeder/pkg/fee"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
	oracletypes "github.com/argus-labs/oracle-feeder/x/oracle/types"
)

const (
	txKindPreVote      = "pre_vote"
	txKindCombinedVote = "combined_vote"
)

// submit sends the pre-vote and, once the node accepted it, the combined vote revealing it.
// Any failure abandons the interval.
func (m *Manager) submit(ctx context.Context, log zerolog.Logger, iv Interval, agg vote.AggregatedVote, outcome *Outcome) {
	ctx, span := m.opts.Tracer.Start(ctx, "manager.submit")
	defer span.End()

	missed := func(err error, msg string) {
		outcome.Status = StatusMissed
		outcome.Reason = eris.Wrap(err, msg).Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.Error().Err(err).Time("submission_deadline", iv.SubmissionDeadline).Msg("missed vote: " + msg)
	}

	salt := uuid.NewString()
	feeder := m.broadcaster.Address()
	votes := oracletypes.ModuleVotesFromAggregate(agg)

	hash, err := oracletypes.VoteHash(salt, votes, m.opts.Validator)
	if err != nil {
		missed(err, "failed to hash votes")
		return
	}

	preVote := oracletypes.NewMsgPreVote(hash, feeder, m.opts.Validator)
	res, err := m.broadcast(ctx, txKindPreVote, m.opts.PreVoteFee, preVote)
	if err != nil {
		missed(err, "pre-vote not accepted")
		return
	}
	outcome.PreVoteTxHash = res.TxHash

	combined := oracletypes.NewMsgCombinedVote(salt, votes, feeder, m.opts.Validator)
	res, err = m.broadcast(ctx, txKindCombinedVote, m.opts.CombinedVoteFee, combined)
	if err != nil {
		missed(err, "combined vote not accepted")
		return
	}
	outcome.CombinedVoteTxHash = res.TxHash
	outcome.Status = StatusSubmitted

	log.Info().
		Strs("modules", outcome.Modules).
		Str("pre_vote_tx", outcome.PreVoteTxHash).
		Str("combined_vote_tx", outcome.CombinedVoteTxHash).
		Msg("vote submitted")
}

// broadcast estimates the fee for msg and submits it, bounded by the broadcast timeout.
func (m *Manager) broadcast(
	ctx context.Context, kind string, policy fee.Policy, msg sdk.Msg,
) (chain.BroadcastResult, error) {
	ctx, span := m.opts.Tracer.Start(ctx, "manager.broadcast")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind), attribute.String("fee_policy", policy.String()))

	if err := msg.ValidateBasic(); err != nil {
		return chain.BroadcastResult{}, eris.Wrapf(err, "invalid %s", kind)
	}

	until := time.Now().Add(m.opts.BroadcastTimeout)
	res, err := deadline.RunBounded(ctx, until, func(ctx context.Context) (chain.BroadcastResult, error) {
		txFee, err := m.estimator.Estimate(ctx, policy, msg)
		if err != nil {
			return chain.BroadcastResult{}, eris.Wrapf(err, "fee estimation for %s failed", kind)
		}
		span.SetAttributes(attribute.Int64("gas_limit", int64(txFee.GasLimit))) //nolint:gosec // gas fits int64
		return m.broadcaster.Broadcast(ctx, txFee, msg)
	})
	if err != nil {
		return chain.BroadcastResult{}, eris.Wrapf(err, "%s broadcast failed", kind)
	}
	return res, nil
}
