package feeder

import (
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rotisserie/eris"

	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/fee"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
)

// feederConfig holds the configuration for a feeder instance.
// Configuration can be set via environment variables with the specified defaults.
type feederConfig struct {
	// Chain id used for signing transactions.
	ChainID string `env:"FEEDER_CHAIN_ID"`

	// Operator address of the validator the feeder votes for.
	Validator string `env:"FEEDER_VALIDATOR"`

	// Node gRPC endpoint used to simulate and broadcast transactions.
	GRPCAddress string `env:"FEEDER_GRPC_ADDRESS" envDefault:"localhost:9090"`

	// Optional path to the CA certificate of the node's gRPC endpoint. Plaintext when empty.
	GRPCCACert string `env:"FEEDER_GRPC_CA_CERT"`

	// Node websocket endpoint the interval end events are read from.
	WebsocketURL string `env:"FEEDER_WEBSOCKET_URL" envDefault:"ws://localhost:26657/websocket"`

	// Typed event emitted by the oracle module at the end of each vote interval.
	EventType string `env:"FEEDER_EVENT_TYPE" envDefault:"oracle.v1.EventVoteIntervalEnds"`

	// Subscription retries before the watcher gives up.
	SubscribeMaxRetries uint64 `env:"FEEDER_SUBSCRIBE_MAX_RETRIES" envDefault:"10"`

	BroadcastTimeoutMs        uint64 `env:"FEEDER_BROADCAST_TIMEOUT_MS" envDefault:"5000"`
	VoteReservedTimeMs        uint64 `env:"FEEDER_VOTE_RESERVED_TIME_MS" envDefault:"3000"`
	ChainBlockCommitTimeoutMs uint64 `env:"FEEDER_CHAIN_BLOCK_COMMIT_TIMEOUT_MS" envDefault:"5000"`

	// Gas price used to turn a gas limit into a fee amount.
	GasPrice string `env:"FEEDER_GAS_PRICE" envDefault:"0.025stake"`

	// Fee policies: "auto", a gas multiplier, or a JSON manual fee.
	PreVoteFee      string `env:"FEEDER_PREVOTE_FEE" envDefault:"auto"`
	CombinedVoteFee string `env:"FEEDER_COMBINED_VOTE_FEE" envDefault:"auto"`

	// Keyring holding the feeder account.
	KeyName        string `env:"FEEDER_KEY_NAME" envDefault:"feeder"`
	KeyringBackend string `env:"FEEDER_KEYRING_BACKEND" envDefault:"test"`
	KeyringDir     string `env:"FEEDER_KEYRING_DIR,expand" envDefault:"${HOME}/.feeder"`

	// Bech32 account prefix of the chain.
	Bech32Prefix string `env:"FEEDER_BECH32_PREFIX" envDefault:"cosmos"`

	// Record interval outcomes in redis.
	JournalEnabled bool `env:"FEEDER_JOURNAL_ENABLED" envDefault:"false"`

	// Modules relayed from redis by the redisfeed plugin. The plugin is not registered when empty.
	RedisfeedModules []string `env:"FEEDER_REDISFEED_MODULES" envSeparator:","`

	RedisAddress  string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// loadConfig loads the feeder configuration from environment variables.
func loadConfig() (feederConfig, error) {
	cfg := feederConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse feeder config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *feederConfig) validate() error {
	if cfg.GRPCAddress == "" {
		return eris.New("grpc address cannot be empty")
	}
	if cfg.WebsocketURL == "" {
		return eris.New("websocket url cannot be empty")
	}
	if cfg.BroadcastTimeoutMs == 0 {
		return eris.New("broadcast timeout must be positive")
	}
	if cfg.ChainBlockCommitTimeoutMs <= cfg.VoteReservedTimeMs {
		return eris.New("chain block commit timeout must exceed vote reserved time")
	}
	if _, err := sdk.ParseDecCoin(cfg.GasPrice); err != nil {
		return eris.Wrapf(err, "invalid gas price %q", cfg.GasPrice)
	}
	if _, err := fee.ParsePolicy(cfg.PreVoteFee); err != nil {
		return eris.Wrap(err, "invalid pre-vote fee")
	}
	if _, err := fee.ParsePolicy(cfg.CombinedVoteFee); err != nil {
		return eris.Wrap(err, "invalid combined vote fee")
	}
	if cfg.JournalEnabled || len(cfg.RedisfeedModules) > 0 {
		if cfg.RedisAddress == "" {
			return eris.New("redis address cannot be empty when redis is used")
		}
	}
	return nil
}

// applyToOptions applies the configuration values to the given Options. It expects a validated
// config.
func (cfg *feederConfig) applyToOptions(opt *Options) {
	opt.ChainID = cfg.ChainID
	opt.Validator = cfg.Validator
	opt.GRPCAddress = cfg.GRPCAddress
	opt.GRPCCACert = cfg.GRPCCACert
	opt.WebsocketURL = cfg.WebsocketURL
	opt.EventType = cfg.EventType
	opt.SubscribeMaxRetries = cfg.SubscribeMaxRetries
	opt.BroadcastTimeout = time.Duration(cfg.BroadcastTimeoutMs) * time.Millisecond
	opt.VoteReservedTime = time.Duration(cfg.VoteReservedTimeMs) * time.Millisecond
	opt.ChainBlockCommitTimeout = time.Duration(cfg.ChainBlockCommitTimeoutMs) * time.Millisecond
	opt.GasPrice, _ = sdk.ParseDecCoin(cfg.GasPrice)
	opt.PreVoteFee, _ = fee.ParsePolicy(cfg.PreVoteFee)
	opt.CombinedVoteFee, _ = fee.ParsePolicy(cfg.CombinedVoteFee)
	opt.KeyName = cfg.KeyName
	opt.KeyringBackend = cfg.KeyringBackend
	opt.KeyringDir = cfg.KeyringDir
	opt.Bech32Prefix = cfg.Bech32Prefix
	opt.JournalEnabled = cfg.JournalEnabled
	opt.RedisfeedModules = cfg.RedisfeedModules
	opt.RedisAddress = cfg.RedisAddress
	opt.RedisPassword = cfg.RedisPassword
}

type Options struct {
	ChainID             string        // Chain id used for signing
	Validator           string        // Validator operator address
	GRPCAddress         string        // Node gRPC endpoint
	GRPCCACert          string        // Optional CA certificate for the gRPC endpoint
	WebsocketURL        string        // Node websocket endpoint
	EventType           string        // Interval end event type
	SubscribeMaxRetries uint64        // Subscription retries before giving up
	BroadcastTimeout    time.Duration // Bound on estimating and broadcasting one tx

	VoteReservedTime        time.Duration
	ChainBlockCommitTimeout time.Duration

	GasPrice        sdk.DecCoin
	PreVoteFee      fee.Policy
	CombinedVoteFee fee.Policy

	KeyName        string
	KeyringBackend string
	KeyringDir     string
	Bech32Prefix   string

	// Keyring overrides KeyringBackend and KeyringDir when set.
	Keyring keyring.Keyring

	JournalEnabled   bool
	RedisfeedModules []string
	RedisAddress     string
	RedisPassword    string

	// Plugins are registered after the built-in ones, so they win module conflicts.
	Plugins []plugin.Plugin

	Version string // Reported to telemetry
}

// newDefaultOptions creates Options with default values.
func newDefaultOptions() Options {
	// Required values are left empty to force users to pass in the correct options.
	return Options{
		ChainID:                 "",
		Validator:               "",
		GRPCAddress:             "",
		WebsocketURL:            "",
		EventType:               event.DefaultEventType,
		SubscribeMaxRetries:     0,
		BroadcastTimeout:        0,
		VoteReservedTime:        0,
		ChainBlockCommitTimeout: 0,
		PreVoteFee:              fee.Auto(),
		CombinedVoteFee:         fee.Auto(),
		KeyName:                 "",
		KeyringBackend:          keyring.BackendTest,
		Bech32Prefix:            sdk.Bech32MainPrefix,
		Version:                 "dev",
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.ChainID != "" {
		opt.ChainID = newOpt.ChainID
	}
	if newOpt.Validator != "" {
		opt.Validator = newOpt.Validator
	}
	if newOpt.GRPCAddress != "" {
		opt.GRPCAddress = newOpt.GRPCAddress
	}
	if newOpt.GRPCCACert != "" {
		opt.GRPCCACert = newOpt.GRPCCACert
	}
	if newOpt.WebsocketURL != "" {
		opt.WebsocketURL = newOpt.WebsocketURL
	}
	if newOpt.EventType != "" {
		opt.EventType = newOpt.EventType
	}
	if newOpt.SubscribeMaxRetries != 0 {
		opt.SubscribeMaxRetries = newOpt.SubscribeMaxRetries
	}
	if newOpt.BroadcastTimeout != 0 {
		opt.BroadcastTimeout = newOpt.BroadcastTimeout
	}
	if newOpt.VoteReservedTime != 0 {
		opt.VoteReservedTime = newOpt.VoteReservedTime
	}
	if newOpt.ChainBlockCommitTimeout != 0 {
		opt.ChainBlockCommitTimeout = newOpt.ChainBlockCommitTimeout
	}
	if newOpt.GasPrice.Denom != "" {
		opt.GasPrice = newOpt.GasPrice
	}
	if newOpt.PreVoteFee.Kind != fee.PolicyUndefined {
		opt.PreVoteFee = newOpt.PreVoteFee
	}
	if newOpt.CombinedVoteFee.Kind != fee.PolicyUndefined {
		opt.CombinedVoteFee = newOpt.CombinedVoteFee
	}
	if newOpt.KeyName != "" {
		opt.KeyName = newOpt.KeyName
	}
	if newOpt.KeyringBackend != "" {
		opt.KeyringBackend = newOpt.KeyringBackend
	}
	if newOpt.KeyringDir != "" {
		opt.KeyringDir = newOpt.KeyringDir
	}
	if newOpt.Bech32Prefix != "" {
		opt.Bech32Prefix = newOpt.Bech32Prefix
	}
	if newOpt.Keyring != nil {
		opt.Keyring = newOpt.Keyring
	}
	if newOpt.JournalEnabled {
		opt.JournalEnabled = true
	}
	if newOpt.RedisfeedModules != nil {
		opt.RedisfeedModules = newOpt.RedisfeedModules
	}
	if newOpt.RedisAddress != "" {
		opt.RedisAddress = newOpt.RedisAddress
	}
	if newOpt.RedisPassword != "" {
		opt.RedisPassword = newOpt.RedisPassword
	}
	if newOpt.Plugins != nil {
		opt.Plugins = newOpt.Plugins
	}
	if newOpt.Version != "" {
		opt.Version = newOpt.Version
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.ChainID == "" {
		return eris.New("chain id cannot be empty")
	}
	if opt.Validator == "" {
		return eris.New("validator address cannot be empty")
	}
	if opt.GRPCAddress == "" {
		return eris.New("grpc address cannot be empty")
	}
	u, err := url.Parse(opt.WebsocketURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return eris.Errorf("invalid websocket url %q", opt.WebsocketURL)
	}
	if opt.BroadcastTimeout <= 0 {
		return eris.New("broadcast timeout must be positive")
	}
	if opt.VoteReservedTime <= 0 {
		return eris.New("vote reserved time must be positive")
	}
	if opt.ChainBlockCommitTimeout <= opt.VoteReservedTime {
		return eris.New("chain block commit timeout must exceed vote reserved time")
	}
	if !opt.GasPrice.IsValid() || opt.GasPrice.Amount.IsZero() {
		return eris.New("gas price must be a positive coin")
	}
	if opt.KeyName == "" {
		return eris.New("key name cannot be empty")
	}
	if opt.Keyring == nil && opt.KeyringBackend != keyring.BackendMemory && opt.KeyringDir == "" {
		return eris.New("keyring dir cannot be empty")
	}
	if opt.Bech32Prefix == "" {
		return eris.New("bech32 prefix cannot be empty")
	}
	if (opt.JournalEnabled || len(opt.RedisfeedModules) > 0) && opt.RedisAddress == "" {
		return eris.New("redis address cannot be empty when redis is used")
	}
	return nil
}

// usesRedis reports whether any component needs the redis client.
func (opt *Options) usesRedis() bool {
	return opt.JournalEnabled || len(opt.RedisfeedModules) > 0
}

func (opt *Options) getSentryTags() map[string]string {
	return map[string]string{
		"chain_id":  opt.ChainID,
		"validator": opt.Validator,
	}
}

// Describe returns the effective options with secrets redacted.
func (opt *Options) Describe() map[string]any {
	password := ""
	if opt.RedisPassword != "" {
		password = "<redacted>"
	}
	return map[string]any{
		"chain_id":                   opt.ChainID,
		"validator":                  opt.Validator,
		"grpc_address":               opt.GRPCAddress,
		"grpc_ca_cert":               opt.GRPCCACert,
		"websocket_url":              opt.WebsocketURL,
		"event_type":                 opt.EventType,
		"subscribe_max_retries":      opt.SubscribeMaxRetries,
		"broadcast_timeout":          opt.BroadcastTimeout.String(),
		"vote_reserved_time":         opt.VoteReservedTime.String(),
		"chain_block_commit_timeout": opt.ChainBlockCommitTimeout.String(),
		"gas_price":                  opt.GasPrice.String(),
		"prevote_fee":                opt.PreVoteFee.String(),
		"combined_vote_fee":          opt.CombinedVoteFee.String(),
		"key_name":                   opt.KeyName,
		"keyring_backend":            opt.KeyringBackend,
		"keyring_dir":                opt.KeyringDir,
		"bech32_prefix":              opt.Bech32Prefix,
		"journal_enabled":            opt.JournalEnabled,
		"redisfeed_modules":          opt.RedisfeedModules,
		"redis_address":              opt.RedisAddress,
		"redis_password":             password,
		"version":                    opt.Version,
	}
}

// LoadOptions merges the environment configuration with opts and validates the result.
func LoadOptions(opts Options) (Options, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Options{}, eris.Wrap(err, "failed to load feeder config")
	}
	options := newDefaultOptions()
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return Options{}, eris.Wrap(err, "invalid feeder options")
	}
	return options, nil
}
