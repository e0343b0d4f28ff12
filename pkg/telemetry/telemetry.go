package telemetry

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/armon/go-metrics"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/argus-labs/oracle-feeder/pkg/telemetry/sentry"
)

const sentryFlushTimeout = 5 * time.Second

type Telemetry struct {
	Logger      zerolog.Logger
	Tracer      trace.Tracer
	Metrics     *metrics.Metrics
	serviceName string

	shutdown func(context.Context) error
}

func New(opts Options) (Telemetry, error) {
	config, err := loadConfig()
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to load otel config")
	}

	options := newDefaultOptions()
	config.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return Telemetry{}, eris.Wrap(err, "invalid otel options")
	}

	logger := newLogger(options)
	// The init logger pins the global level to info; the configured level replaces it.
	zerolog.SetGlobalLevel(logger.GetLevel())

	ctx := context.Background()
	tracer, shutdown, err := setupTracing(ctx, config, options)
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup tracing")
	}

	m, err := setupMetrics(options)
	if err != nil {
		return Telemetry{}, errors.Join(err, shutdown(ctx))
	}

	if err := sentry.New(options.SentryOptions); err != nil {
		m.Shutdown()
		return Telemetry{}, errors.Join(err, shutdown(ctx))
	}

	return Telemetry{
		Logger:      logger,
		Tracer:      tracer,
		Metrics:     m,
		serviceName: options.ServiceName,
		shutdown:    shutdown,
	}, nil
}

// Shutdown gracefully shuts down the telemetry system.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	sentry.Shutdown(ctx, sentryFlushTimeout)
	if t.Metrics != nil {
		t.Metrics.Shutdown()
	}
	if t.shutdown != nil {
		return t.shutdown(ctx)
	}
	return nil
}

// RecoverAndFlush reports a panic, if any, and flushes buffered error events. Defer it at the top
// of long-running entry points.
func (t *Telemetry) RecoverAndFlush(repanic bool) {
	sentry.RecoverAndFlush(repanic)
}

// CaptureException reports a handled error.
func (t *Telemetry) CaptureException(ctx context.Context, err error) {
	sentry.CaptureException(ctx, err)
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// GetLoggerWithTrace is GetLogger plus the trace and span ids of the span in ctx, when it is
// being recorded.
func (t *Telemetry) GetLoggerWithTrace(ctx context.Context, component string) zerolog.Logger {
	logger := t.GetLogger(component)
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return logger
	}
	sc := span.SpanContext()
	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}

func init() { //nolint:gochecknoinits // Its fine
	// Set up the global logger
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Create a console writer with timestamp
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	// Set the global logger
	log.Logger = zerolog.New(consoleWriter). //nolint:reassign // Its fine
							With().
							Timestamp().
							Caller().
							Logger()
}

// GetGlobalLogger returns a component-specific logger using the global console logger.
func GetGlobalLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
