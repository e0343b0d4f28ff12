package types_test

import (
	"encoding/hex"
	"testing"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/oracle-feeder/pkg/vote"
	"github.com/argus-labs/oracle-feeder/x/oracle/types"
)

func addresses() (string, string) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return sdk.AccAddress(raw).String(), sdk.ValAddress(raw).String()
}

func sampleVotes() []*types.ModuleVote {
	return types.ModuleVotesFromAggregate(vote.AggregatedVote{
		"prices": {{Namespace: "btc", Payload: "64000"}, {Namespace: "atom", Payload: "9"}},
		"agent":  {{Namespace: "n1", Payload: "x"}},
	})
}

func TestModuleVotesFromAggregate_SortsModules(t *testing.T) {
	t.Parallel()

	votes := sampleVotes()
	require.Len(t, votes, 2)
	assert.Equal(t, "agent", votes[0].Module)
	assert.Equal(t, "prices", votes[1].Module)
	// Namespace order within a module is preserved.
	assert.Equal(t, "btc", votes[1].NamespaceVotes[0].Namespace)
	assert.Equal(t, "atom", votes[1].NamespaceVotes[1].Namespace)
}

func TestVoteHash(t *testing.T) {
	t.Parallel()

	_, val := addresses()
	votes := sampleVotes()

	h1, err := types.VoteHash("salt", votes, val)
	require.NoError(t, err)
	bz, err := hex.DecodeString(h1)
	require.NoError(t, err)
	assert.Len(t, bz, types.VoteHashSize)

	reversed := []*types.ModuleVote{votes[1], votes[0]}
	h2, err := types.VoteHash("salt", reversed, val)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "module order must not change the hash")

	h3, err := types.VoteHash("other-salt", votes, val)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestMsgPreVote_ValidateBasic(t *testing.T) {
	t.Parallel()

	feeder, val := addresses()
	hash, err := types.VoteHash("salt", sampleVotes(), val)
	require.NoError(t, err)

	require.NoError(t, types.NewMsgPreVote(hash, feeder, val).ValidateBasic())
	require.Error(t, types.NewMsgPreVote("nothex", feeder, val).ValidateBasic())
	require.Error(t, types.NewMsgPreVote(hash, "bad", val).ValidateBasic())
	require.Error(t, types.NewMsgPreVote(hash, feeder, feeder).ValidateBasic())

	signers := types.NewMsgPreVote(hash, feeder, val).GetSigners()
	require.Len(t, signers, 1)
	assert.Equal(t, feeder, signers[0].String())
}

func TestMsgCombinedVote_ValidateBasic(t *testing.T) {
	t.Parallel()

	feeder, val := addresses()
	votes := sampleVotes()

	require.NoError(t, types.NewMsgCombinedVote("salt", votes, feeder, val).ValidateBasic())
	require.Error(t, types.NewMsgCombinedVote("", votes, feeder, val).ValidateBasic())
	require.Error(t, types.NewMsgCombinedVote("salt", nil, feeder, val).ValidateBasic())

	dup := []*types.ModuleVote{votes[0], votes[0]}
	require.Error(t, types.NewMsgCombinedVote("salt", dup, feeder, val).ValidateBasic())
}

func TestRegisterInterfaces_PacksAndUnpacks(t *testing.T) {
	t.Parallel()

	feeder, val := addresses()
	registry := cdctypes.NewInterfaceRegistry()
	types.RegisterInterfaces(registry)

	msg := types.NewMsgCombinedVote("salt", sampleVotes(), feeder, val)
	anyMsg, err := cdctypes.NewAnyWithValue(msg)
	require.NoError(t, err)
	assert.Equal(t, "/oracle.v1.MsgCombinedVote", anyMsg.TypeUrl)

	var decoded sdk.Msg
	require.NoError(t, registry.UnpackAny(&cdctypes.Any{TypeUrl: anyMsg.TypeUrl, Value: anyMsg.Value}, &decoded))
	got, ok := decoded.(*types.MsgCombinedVote)
	require.True(t, ok)
	assert.Equal(t, msg.Salt, got.Salt)
	require.Len(t, got.ModuleVotes, 2)
	assert.Equal(t, "prices", got.ModuleVotes[1].Module)
	assert.Equal(t, "64000", got.ModuleVotes[1].NamespaceVotes[0].Payload)
}
