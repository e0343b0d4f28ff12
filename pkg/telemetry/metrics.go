package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/rotisserie/eris"
)

const (
	inmemInterval  = 10 * time.Second
	inmemRetention = time.Minute
)

// setupMetrics installs the global go-metrics instance. Counters go to statsd when an address is
// configured and to an in-memory sink otherwise; the in-memory sink dumps its data on SIGUSR1.
func setupMetrics(opts Options) (*metrics.Metrics, error) {
	cfg := metrics.DefaultConfig(opts.ServiceName)
	cfg.EnableHostname = false

	var sink metrics.MetricSink
	if opts.StatsdAddr != "" {
		statsd, err := metrics.NewStatsdSink(opts.StatsdAddr)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to create statsd sink for %s", opts.StatsdAddr)
		}
		sink = statsd
	} else {
		inmem := metrics.NewInmemSink(inmemInterval, inmemRetention)
		metrics.DefaultInmemSignal(inmem)
		sink = inmem
	}

	m, err := metrics.NewGlobal(cfg, sink)
	if err != nil {
		return nil, eris.Wrap(err, "failed to set up metrics")
	}
	return m, nil
}
