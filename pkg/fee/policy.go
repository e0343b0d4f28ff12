package fee

import (
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// AutoMultiplier is the gas multiplier applied by the auto policy.
const AutoMultiplier = "1.3"

type PolicyKind uint8

const (
	PolicyUndefined PolicyKind = iota
	PolicyManual
	PolicyMultiplier
	PolicyAuto
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyManual:
		return "manual"
	case PolicyMultiplier:
		return "multiplier"
	case PolicyAuto:
		return "auto"
	default:
		return "undefined"
	}
}

// Policy says how the fee for one kind of transaction is computed.
type Policy struct {
	Kind       PolicyKind
	Multiplier sdk.Dec // set for PolicyMultiplier
	Manual     Fee     // set for PolicyManual
}

// Auto returns the auto policy.
func Auto() Policy {
	return Policy{Kind: PolicyAuto, Multiplier: sdk.MustNewDecFromStr(AutoMultiplier)}
}

// Multiplier returns a policy that scales simulated gas by m.
func Multiplier(m sdk.Dec) Policy {
	return Policy{Kind: PolicyMultiplier, Multiplier: m}
}

// Manual returns a policy that always uses f.
func Manual(f Fee) Policy {
	return Policy{Kind: PolicyManual, Manual: f}
}

type manualFee struct {
	Amount string `json:"amount"`
	Gas    uint64 `json:"gas"`
}

// ParsePolicy reads a policy from its config form: "auto", a positive decimal multiplier such as
// "1.5", or a manual fee object such as {"amount":"2000stake","gas":200000}.
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Policy{}, eris.New("fee policy cannot be empty")
	case strings.EqualFold(s, "auto"):
		return Auto(), nil
	case strings.HasPrefix(s, "{"):
		var m manualFee
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return Policy{}, eris.Wrap(err, "invalid manual fee")
		}
		coins, err := sdk.ParseCoinsNormalized(m.Amount)
		if err != nil {
			return Policy{}, eris.Wrapf(err, "invalid manual fee amount %q", m.Amount)
		}
		if m.Gas == 0 {
			return Policy{}, eris.New("manual fee gas must be positive")
		}
		return Manual(Fee{Amount: coins, GasLimit: m.Gas}), nil
	default:
		mult, err := sdk.NewDecFromStr(s)
		if err != nil {
			return Policy{}, eris.Wrapf(err, "invalid fee multiplier %q", s)
		}
		if !mult.IsPositive() {
			return Policy{}, eris.Errorf("fee multiplier must be positive, got %s", s)
		}
		return Multiplier(mult), nil
	}
}

func (p Policy) String() string {
	switch p.Kind {
	case PolicyManual:
		return "manual(" + p.Manual.String() + ")"
	case PolicyMultiplier:
		return "multiplier(" + p.Multiplier.String() + ")"
	default:
		return p.Kind.String()
	}
}
