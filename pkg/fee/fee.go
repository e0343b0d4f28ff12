package fee

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rotisserie/eris"
)

// Fee is what a transaction pays: the coin amount and the gas limit it buys.
type Fee struct {
	Amount   sdk.Coins
	GasLimit uint64
}

func (f Fee) String() string {
	return fmt.Sprintf("%s/%d", f.Amount, f.GasLimit)
}

// Simulator estimates the gas a transaction carrying msgs would use.
type Simulator interface {
	Simulate(ctx context.Context, msgs ...sdk.Msg) (uint64, error)
}

// Estimator computes fees from a policy. Fees are computed fresh for every transaction.
type Estimator struct {
	sim      Simulator
	gasPrice sdk.DecCoin
}

func NewEstimator(sim Simulator, gasPrice sdk.DecCoin) (*Estimator, error) {
	if sim == nil {
		return nil, eris.New("simulator cannot be nil")
	}
	if err := gasPrice.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid gas price")
	}
	if !gasPrice.IsPositive() {
		return nil, eris.New("gas price must be positive")
	}
	return &Estimator{sim: sim, gasPrice: gasPrice}, nil
}

// Estimate returns the fee for a transaction carrying msgs. Manual policies are returned verbatim
// without simulating. Otherwise gas is ceil(simulated × multiplier) and the amount is
// ceil(gas × gasPrice), both in exact decimal arithmetic.
func (e *Estimator) Estimate(ctx context.Context, policy Policy, msgs ...sdk.Msg) (Fee, error) {
	var mult sdk.Dec
	switch policy.Kind {
	case PolicyManual:
		return policy.Manual, nil
	case PolicyAuto:
		mult = sdk.MustNewDecFromStr(AutoMultiplier)
	case PolicyMultiplier:
		if policy.Multiplier.IsNil() || !policy.Multiplier.IsPositive() {
			return Fee{}, eris.New("multiplier policy needs a positive multiplier")
		}
		mult = policy.Multiplier
	default:
		return Fee{}, eris.Errorf("unsupported fee policy %s", policy.Kind)
	}

	simulated, err := e.sim.Simulate(ctx, msgs...)
	if err != nil {
		return Fee{}, eris.Wrap(err, "gas simulation failed")
	}

	gas := ScaleGas(simulated, mult)
	return Fee{Amount: e.Amount(gas), GasLimit: gas}, nil
}

// ScaleGas returns ceil(gas × mult).
func ScaleGas(gas uint64, mult sdk.Dec) uint64 {
	return sdk.NewDecFromInt(sdk.NewIntFromUint64(gas)).Mul(mult).Ceil().TruncateInt().Uint64()
}

// Amount returns ceil(gas × gasPrice) in the gas price denom.
func (e *Estimator) Amount(gas uint64) sdk.Coins {
	amt := e.gasPrice.Amount.Mul(sdk.NewDecFromInt(sdk.NewIntFromUint64(gas))).Ceil().TruncateInt()
	return sdk.NewCoins(sdk.NewCoin(e.gasPrice.Denom, amt))
}
