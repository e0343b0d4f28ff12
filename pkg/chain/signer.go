package chain

import (
	"context"
	"sync"

	"github.com/cosmos/cosmos-sdk/client"
	clienttx "github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/oracle-feeder/pkg/fee"
)

// ErrTxRejected is returned when the node answers a broadcast with a non-zero code.
var ErrTxRejected = eris.New("transaction rejected by node")

var _ fee.Simulator = &Signer{}

// BroadcastResult identifies an accepted transaction.
type BroadcastResult struct {
	TxHash   string
	Sequence uint64
}

// Signer builds, signs and broadcasts transactions for the feeder account. Calls are serialized:
// the account sequence is read, used and advanced under one lock, so a transaction sent before the
// previous one is committed still gets the next sequence.
type Signer struct {
	client  NodeClient
	txCfg   client.TxConfig
	factory clienttx.Factory
	keyName string
	address sdk.AccAddress
	log     zerolog.Logger

	mu   sync.Mutex
	seqs sequenceTracker
}

func NewSigner(
	log zerolog.Logger, nodeClient NodeClient, txCfg client.TxConfig, kr keyring.Keyring, chainID, keyName string,
) (*Signer, error) {
	if chainID == "" {
		return nil, eris.New("chain id cannot be empty")
	}
	record, err := kr.Key(keyName)
	if err != nil {
		return nil, eris.Wrapf(err, "key %q not found in keyring", keyName)
	}
	addr, err := record.GetAddress()
	if err != nil {
		return nil, eris.Wrapf(err, "key %q has no address", keyName)
	}

	factory := clienttx.Factory{}.
		WithTxConfig(txCfg).
		WithKeybase(kr).
		WithChainID(chainID).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT)

	return &Signer{
		client:  nodeClient,
		txCfg:   txCfg,
		factory: factory,
		keyName: keyName,
		address: addr,
		log:     log,
	}, nil
}

// Address is the bech32 address of the feeder account.
func (s *Signer) Address() string {
	return s.address.String()
}

// Simulate returns the gas a transaction carrying msgs would use if sent now.
func (s *Signer) Simulate(ctx context.Context, msgs ...sdk.Msg) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, _, err := s.prepareFactory(ctx)
	if err != nil {
		return 0, err
	}
	bz, err := f.BuildSimTx(msgs...)
	if err != nil {
		return 0, eris.Wrap(err, "failed to build simulation tx")
	}
	return s.client.Simulate(ctx, bz)
}

// Broadcast signs msgs with the given fee and submits them. A nil error means the node accepted
// the transaction into its mempool.
func (s *Signer) Broadcast(ctx context.Context, txFee fee.Fee, msgs ...sdk.Msg) (BroadcastResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, seq, err := s.prepareFactory(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}
	f = f.WithGas(txFee.GasLimit)

	txb, err := f.BuildUnsignedTx(msgs...)
	if err != nil {
		return BroadcastResult{}, eris.Wrap(err, "failed to build tx")
	}
	txb.SetFeeAmount(txFee.Amount)
	if err := clienttx.Sign(f, s.keyName, txb, true); err != nil {
		return BroadcastResult{}, eris.Wrap(err, "failed to sign tx")
	}
	bz, err := s.txCfg.TxEncoder()(txb.GetTx())
	if err != nil {
		return BroadcastResult{}, eris.Wrap(err, "failed to encode tx")
	}

	res, err := s.client.BroadcastTx(ctx, bz)
	if err != nil {
		// The node may or may not have seen the tx; let the next account query decide.
		s.seqs.reset()
		return BroadcastResult{}, err
	}
	if res.Code != 0 {
		if res.Codespace == sdkerrors.RootCodespace && res.Code == sdkerrors.ErrWrongSequence.ABCICode() {
			s.seqs.reset()
		}
		return BroadcastResult{}, eris.Wrapf(ErrTxRejected, "code %d (%s): %s", res.Code, res.Codespace, res.RawLog)
	}

	s.seqs.consumed(seq)
	s.log.Debug().Str("tx_hash", res.TxHash).Uint64("sequence", seq).Msg("transaction accepted")
	return BroadcastResult{TxHash: res.TxHash, Sequence: seq}, nil
}

// prepareFactory must be called with s.mu held.
func (s *Signer) prepareFactory(ctx context.Context) (clienttx.Factory, uint64, error) {
	accNum, onChain, err := s.client.Account(ctx, s.address.String())
	if err != nil {
		return clienttx.Factory{}, 0, eris.Wrap(err, "failed to fetch feeder account")
	}
	seq := s.seqs.resolve(onChain)
	return s.factory.WithAccountNumber(accNum).WithSequence(seq), seq, nil
}

// sequenceTracker remembers the next sequence this process will use. The committed sequence
// reported by the node lags behind while our transactions sit in the mempool.
type sequenceTracker struct {
	next  uint64
	valid bool
}

func (t *sequenceTracker) resolve(onChain uint64) uint64 {
	if !t.valid || onChain > t.next {
		return onChain
	}
	return t.next
}

func (t *sequenceTracker) consumed(seq uint64) {
	t.next = seq + 1
	t.valid = true
}

func (t *sequenceTracker) reset() {
	t.valid = false
}
