// Package redisfeed is a plugin that relays votes an external pipeline staged in redis. For every
// configured module it reads the hash <prefix>:<module>, whose fields are namespaces and whose
// values are the payloads to vote.
package redisfeed

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/oracle-feeder/pkg/event"
	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
	"github.com/argus-labs/oracle-feeder/pkg/plugin"
	"github.com/argus-labs/oracle-feeder/pkg/vote"
)

const (
	Name          = "redisfeed"
	DefaultPrefix = "FEEDER:STAGED"
)

var (
	_ plugin.Plugin          = &Plugin{}
	_ plugin.Preparer        = &Plugin{}
	_ plugin.TimeoutObserver = &Plugin{}
)

type Options struct {
	Modules []string
	Prefix  string
}

type Plugin struct {
	lifecycle.Lifecycle

	client  *redis.Client
	log     zerolog.Logger
	modules []string
	prefix  string
}

// snapshot is the Preparation: module -> namespace -> payload.
type snapshot map[string]map[string]string

func New(log zerolog.Logger, client *redis.Client, opts Options) (*Plugin, error) {
	if client == nil {
		return nil, eris.New("redis client cannot be nil")
	}
	if len(opts.Modules) == 0 {
		return nil, eris.New("at least one module is required")
	}
	seen := make(map[string]struct{}, len(opts.Modules))
	for _, m := range opts.Modules {
		if m == "" {
			return nil, eris.New("module name cannot be empty")
		}
		if _, ok := seen[m]; ok {
			return nil, eris.Errorf("module %q listed twice", m)
		}
		seen[m] = struct{}{}
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Plugin{
		client:  client,
		log:     log,
		modules: append([]string(nil), opts.Modules...),
		prefix:  opts.Prefix,
	}, nil
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Start(ctx context.Context) error {
	return p.StartWith(ctx, func(ctx context.Context) error {
		return eris.Wrap(p.client.Ping(ctx).Err(), "redis is unreachable")
	})
}

func (p *Plugin) Stop(ctx context.Context) error {
	return p.StopWith(ctx, nil)
}

// Prepare reads every module's staged hash in one round trip.
func (p *Plugin) Prepare(ctx context.Context, ev event.IntervalEnd, budget time.Duration) (plugin.Preparation, error) {
	pipe := p.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(p.modules))
	for i, m := range p.modules {
		cmds[i] = pipe.HGetAll(ctx, p.key(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, eris.Wrap(err, "failed to read staged votes")
	}

	snap := make(snapshot, len(p.modules))
	for i, m := range p.modules {
		if vals := cmds[i].Val(); len(vals) > 0 {
			snap[m] = vals
		}
	}
	p.log.Debug().Int64("height", ev.CloseHeight).Dur("budget", budget).Int("modules", len(snap)).Msg("staged votes read")
	return snap, nil
}

// Collect turns the snapshot into votes. Namespaces are sorted so identical data votes identically.
func (p *Plugin) Collect(_ context.Context, _ event.IntervalEnd, prep plugin.Preparation) (vote.ModuleVoteSet, error) {
	snap, ok := prep.(snapshot)
	if !ok {
		return nil, eris.Errorf("unexpected preparation %T", prep)
	}

	set := make(vote.ModuleVoteSet, len(snap))
	for module, fields := range snap {
		namespaces := make([]string, 0, len(fields))
		for ns := range fields {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)

		mv := make(vote.ModuleVote, 0, len(namespaces))
		for _, ns := range namespaces {
			mv = append(mv, vote.NamespaceVote{Namespace: ns, Payload: fields[ns]})
		}
		set[module] = mv
	}
	return set, nil
}

func (p *Plugin) OnPreparationTimeout(ev event.IntervalEnd) {
	p.log.Warn().Int64("height", ev.CloseHeight).Msg("reading staged votes took too long, interval skipped")
}

func (p *Plugin) key(module string) string {
	return p.prefix + ":" + module
}
