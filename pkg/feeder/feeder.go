package feeder

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/argus-labs/oracle-feeder/pkg/chain"
	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/fee"
	"github.com/argus-labs/oracle-feeder/pkg/journal"
	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
	"github.com/argus-labs/oracle-feeder/pkg/manager"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
	"github.com/argus-labs/oracle-feeder/pkg/telemetry"
	"github.com/argus-labs/oracle-feeder/pkg/telemetry/sentry"
	"github.com/argus-labs/oracle-feeder/plugins/redisfeed"
)

const shutdownTimeout = 10 * time.Second

// Feeder hosts the plugins, watches the chain for interval ends and submits the validator's votes.
type Feeder struct {
	node     *chain.GRPCClient
	redis    *redis.Client // nil when no component uses redis
	signer   *chain.Signer
	registry *plugin.Registry
	services *lifecycle.Group
	watcher  *event.Watcher
	manager  *manager.Manager
	journal  *journal.Journal // nil when disabled

	options Options
	tel     telemetry.Telemetry
}

// New wires a feeder from the environment configuration merged with opts.
func New(opts Options) (*Feeder, error) {
	options, err := LoadOptions(opts)
	if err != nil {
		return nil, err
	}

	setBech32Prefixes(options.Bech32Prefix)
	if _, err := sdk.ValAddressFromBech32(options.Validator); err != nil {
		return nil, eris.Wrapf(err, "invalid validator address %q", options.Validator)
	}

	tel, err := telemetry.New(telemetry.Options{
		ServiceName:    "feeder",
		ServiceVersion: options.Version,
		ResourceAttributes: map[string]string{
			"feeder.chain_id":  options.ChainID,
			"feeder.validator": options.Validator,
		},
		SentryOptions: sentry.Options{
			Release: options.Version,
			Tags:    options.getSentryTags(),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize telemetry")
	}
	defer tel.RecoverAndFlush(true)

	f := &Feeder{options: options, tel: tel}
	if err := f.wire(); err != nil {
		f.shutdown()
		return nil, err
	}
	return f, nil
}

func (f *Feeder) wire() error {
	options := f.options
	enc := chain.MakeEncodingConfig()

	kr := options.Keyring
	if kr == nil {
		var err error
		kr, err = keyring.New("feeder", options.KeyringBackend, options.KeyringDir, os.Stdin, enc.Codec)
		if err != nil {
			return eris.Wrap(err, "failed to open keyring")
		}
	}

	var clientOpts []chain.Option
	if options.GRPCCACert != "" {
		clientOpts = append(clientOpts, chain.WithCredentials(options.GRPCCACert))
	}
	node, err := chain.NewClient(options.GRPCAddress, enc.InterfaceRegistry, clientOpts...)
	if err != nil {
		return eris.Wrap(err, "failed to create node client")
	}
	f.node = node

	signer, err := chain.NewSigner(
		f.tel.GetLogger("signer"), node, enc.TxConfig, kr, options.ChainID, options.KeyName)
	if err != nil {
		return eris.Wrap(err, "failed to create signer")
	}
	f.signer = signer

	estimator, err := fee.NewEstimator(signer, options.GasPrice)
	if err != nil {
		return eris.Wrap(err, "failed to create fee estimator")
	}

	if options.usesRedis() {
		f.redis = redis.NewClient(&redis.Options{
			Addr:     options.RedisAddress,
			Password: options.RedisPassword,
			DB:       0,
		})
	}

	// Services start in this order and stop in reverse.
	var services []lifecycle.Service
	if options.JournalEnabled {
		j, err := journal.New(f.tel.GetLogger("journal"), f.redis, journal.Options{})
		if err != nil {
			return eris.Wrap(err, "failed to create journal")
		}
		f.journal = j
		services = append(services, j)
	}

	f.registry = plugin.NewRegistry()
	if len(options.RedisfeedModules) > 0 {
		rf, err := redisfeed.New(f.tel.GetLogger("redisfeed"), f.redis, redisfeed.Options{
			Modules: options.RedisfeedModules,
		})
		if err != nil {
			return eris.Wrap(err, "failed to create redisfeed plugin")
		}
		if err := f.registry.Register(rf); err != nil {
			return eris.Wrap(err, "failed to register redisfeed plugin")
		}
	}
	if err := f.registry.Register(options.Plugins...); err != nil {
		return eris.Wrap(err, "failed to register plugins")
	}
	f.registry.Seal()
	for _, p := range f.registry.All() {
		services = append(services, p)
	}
	f.services = lifecycle.NewGroup(f.tel.GetLogger("services"), services...)

	watcherLog := f.tel.GetLogger("watcher")
	watcher, err := event.NewWatcher(event.WatcherOptions{
		URL:        options.WebsocketURL,
		EventType:  options.EventType,
		MaxRetries: options.SubscribeMaxRetries,
		Logger:     &watcherLog,
	})
	if err != nil {
		return eris.Wrap(err, "failed to create event watcher")
	}
	f.watcher = watcher

	managerLog := f.tel.GetLogger("manager")
	managerOpts := manager.Options{
		ChainBlockCommitTimeout: options.ChainBlockCommitTimeout,
		VoteReservedTime:        options.VoteReservedTime,
		BroadcastTimeout:        options.BroadcastTimeout,
		PreVoteFee:              options.PreVoteFee,
		CombinedVoteFee:         options.CombinedVoteFee,
		Validator:               options.Validator,
		Logger:                  &managerLog,
		Tracer:                  f.tel.Tracer,
		Metrics:                 f.tel.Metrics,
	}
	managerOpts.IntervalLogger = func(ctx context.Context) zerolog.Logger {
		return f.tel.GetLoggerWithTrace(ctx, "manager")
	}
	if f.journal != nil {
		managerOpts.Recorder = f.journal
	}
	m, err := manager.New(f.registry, estimator, signer, managerOpts)
	if err != nil {
		return eris.Wrap(err, "failed to create vote manager")
	}
	f.manager = m

	return nil
}

// Run starts the services and votes every interval until SIGINT or SIGTERM, or until a fatal
// error. It returns the fatal error, if any, after shutting down.
func (f *Feeder) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer f.shutdown()
	defer f.tel.RecoverAndFlush(true)

	f.tel.Logger.Info().
		Str("feeder", f.signer.Address()).
		Str("validator", f.options.Validator).
		Int("plugins", f.registry.Len()).
		Msg("starting feeder")

	if err := f.run(ctx); err != nil {
		f.tel.CaptureException(ctx, err)
		f.tel.Logger.Error().Err(err).Str("trace", eris.ToString(err, true)).Msg("feeder stopped with error")
		return err
	}
	return nil
}

func (f *Feeder) run(ctx context.Context) error {
	if err := f.services.Start(ctx); err != nil {
		return eris.Wrap(err, "failed to start services")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.watcher.Run(ctx)
	})
	g.Go(func() error {
		return f.manager.Run(ctx, f.watcher.Events())
	})
	return g.Wait()
}

// shutdown stops services in reverse start order and releases the clients. It is called
// automatically when Run returns.
func (f *Feeder) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	f.tel.Logger.Info().Msg("Shutting down feeder")

	var errs error
	if f.services != nil {
		errs = errors.Join(errs, f.services.Stop(ctx))
	}
	if f.redis != nil {
		errs = errors.Join(errs, eris.Wrap(f.redis.Close(), "failed to close redis client"))
	}
	if f.node != nil {
		errs = errors.Join(errs, eris.Wrap(f.node.Close(), "failed to close node client"))
	}
	if errs != nil {
		f.tel.Logger.Error().Err(errs).Msg("feeder shutdown error")
		f.tel.CaptureException(ctx, errs)
	}

	if err := f.tel.Shutdown(ctx); err != nil {
		f.tel.Logger.Error().Err(err).Msg("telemetry shutdown error")
	}

	f.tel.Logger.Info().Msg("Feeder shutdown complete")
}

// setBech32Prefixes derives every bech32 prefix from the account prefix.
func setBech32Prefixes(prefix string) {
	cfg := sdk.GetConfig()
	cfg.SetBech32PrefixForAccount(prefix, prefix+sdk.PrefixPublic)
	cfg.SetBech32PrefixForValidator(prefix+sdk.PrefixValidator+sdk.PrefixOperator,
		prefix+sdk.PrefixValidator+sdk.PrefixOperator+sdk.PrefixPublic)
	cfg.SetBech32PrefixForConsensusNode(prefix+sdk.PrefixValidator+sdk.PrefixConsensus,
		prefix+sdk.PrefixValidator+sdk.PrefixConsensus+sdk.PrefixPublic)
}
