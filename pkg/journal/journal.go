// Package journal keeps a bounded history of vote interval outcomes in redis so operators can see
// which intervals were missed and why.
package journal

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
	"github.com/argus-labs/oracle-feeder/pkg/manager"
)

const (
	defaultNamespace = "FEEDER"
	defaultCapacity  = 1000
)

var (
	_ lifecycle.Service = &Journal{}
	_ manager.Recorder  = &Journal{}
)

type Options struct {
	Namespace string // Key prefix
	Capacity  int64  // Outcomes kept before the oldest is trimmed
}

type Journal struct {
	lifecycle.Lifecycle

	client   *redis.Client
	log      zerolog.Logger
	outcomes string
	counts   string
	capacity int64
}

func New(log zerolog.Logger, client *redis.Client, opts Options) (*Journal, error) {
	if client == nil {
		return nil, eris.New("redis client cannot be nil")
	}
	if opts.Namespace == "" {
		opts.Namespace = defaultNamespace
	}
	if opts.Capacity == 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.Capacity < 0 {
		return nil, eris.New("capacity must be positive")
	}
	return &Journal{
		client:   client,
		log:      log,
		outcomes: redisOutcomesKey(opts.Namespace),
		counts:   redisStatusCountKey(opts.Namespace),
		capacity: opts.Capacity,
	}, nil
}

func (j *Journal) Name() string { return "journal" }

// Start checks that redis is reachable.
func (j *Journal) Start(ctx context.Context) error {
	return j.StartWith(ctx, func(ctx context.Context) error {
		if err := j.client.Ping(ctx).Err(); err != nil {
			return eris.Wrap(err, "redis is unreachable")
		}
		return nil
	})
}

// Stop marks the journal stopped. The redis client belongs to the caller.
func (j *Journal) Stop(ctx context.Context) error {
	return j.StopWith(ctx, nil)
}

// Record appends the outcome and bumps its status counter in one transaction.
func (j *Journal) Record(ctx context.Context, o manager.Outcome) error {
	if !j.IsStarted() {
		return eris.New("journal is not started")
	}
	bz, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "failed to encode outcome")
	}

	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, j.outcomes, bz)
	pipe.LTrim(ctx, j.outcomes, 0, j.capacity-1)
	pipe.HIncrBy(ctx, j.counts, string(o.Status), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrap(err, "failed to write outcome")
	}
	j.log.Debug().Int64("height", o.Height).Str("status", string(o.Status)).Msg("outcome recorded")
	return nil
}

// Recent returns up to n outcomes, newest first.
func (j *Journal) Recent(ctx context.Context, n int64) ([]manager.Outcome, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := j.client.LRange(ctx, j.outcomes, 0, n-1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read outcomes")
	}
	out := make([]manager.Outcome, 0, len(raw))
	for _, s := range raw {
		var o manager.Outcome
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			return nil, eris.Wrap(err, "failed to decode outcome")
		}
		out = append(out, o)
	}
	return out, nil
}

// Counts returns how many intervals ended with each status.
func (j *Journal) Counts(ctx context.Context) (map[manager.Status]int64, error) {
	raw, err := j.client.HGetAll(ctx, j.counts).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read status counts")
	}
	out := make(map[manager.Status]int64, len(raw))
	for status, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid count for %s", status)
		}
		out[manager.Status(status)] = n
	}
	return out, nil
}
