package types

import (
	"encoding/hex"

	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

var (
	_ sdk.Msg = &MsgPreVote{}
	_ sdk.Msg = &MsgCombinedVote{}
)

func NewMsgPreVote(hash, feeder, validator string) *MsgPreVote {
	return &MsgPreVote{
		Hash:      hash,
		Feeder:    feeder,
		Validator: validator,
	}
}

func (msg MsgPreVote) ValidateBasic() error {
	bz, err := hex.DecodeString(msg.Hash)
	if err != nil || len(bz) != VoteHashSize {
		return sdkerrors.ErrInvalidRequest.Wrapf("hash must be %d hex encoded bytes", VoteHashSize)
	}
	return validateAddresses(msg.Feeder, msg.Validator)
}

// GetSigners implements sdk.Msg
func (msg MsgPreVote) GetSigners() []sdk.AccAddress {
	return signers(msg.Feeder)
}

func NewMsgCombinedVote(salt string, votes []*ModuleVote, feeder, validator string) *MsgCombinedVote {
	return &MsgCombinedVote{
		Feeder:      feeder,
		Validator:   validator,
		Salt:        salt,
		ModuleVotes: votes,
	}
}

func (msg MsgCombinedVote) ValidateBasic() error {
	if msg.Salt == "" {
		return sdkerrors.ErrInvalidRequest.Wrap("salt cannot be empty")
	}
	if len(msg.ModuleVotes) == 0 {
		return sdkerrors.ErrInvalidRequest.Wrap("module_votes cannot be empty")
	}
	seen := make(map[string]struct{}, len(msg.ModuleVotes))
	for _, mv := range msg.ModuleVotes {
		if mv == nil || mv.Module == "" {
			return sdkerrors.ErrInvalidRequest.Wrap("module name cannot be empty")
		}
		if _, ok := seen[mv.Module]; ok {
			return sdkerrors.ErrInvalidRequest.Wrapf("duplicate module %q", mv.Module)
		}
		seen[mv.Module] = struct{}{}
	}
	return validateAddresses(msg.Feeder, msg.Validator)
}

// GetSigners implements sdk.Msg
func (msg MsgCombinedVote) GetSigners() []sdk.AccAddress {
	return signers(msg.Feeder)
}

func validateAddresses(feeder, validator string) error {
	if _, err := sdk.AccAddressFromBech32(feeder); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid feeder address: %v", err)
	}
	if _, err := sdk.ValAddressFromBech32(validator); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid validator address: %v", err)
	}
	return nil
}

func signers(feeder string) []sdk.AccAddress {
	accAddr, err := sdk.AccAddressFromBech32(feeder)
	if err != nil {
		panic(err)
	}

	return []sdk.AccAddress{accAddr}
}
