package telemetry

import (
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/oracle-feeder/pkg/telemetry/sentry"
)

// Config is the operator-facing telemetry configuration of a feeder process.
type Config struct {
	// Enabled exports interval spans to an OTLP collector. Spans are still created, but not
	// recorded, when false.
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint string `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	Insecure bool   `env:"OTEL_INSECURE" envDefault:"true"`

	// TraceSampleRate is the fraction of intervals whose spans are exported.
	TraceSampleRate float64 `env:"OTEL_TRACE_SAMPLE_RATE" envDefault:"1.0"`

	LogLevel  string `env:"OTEL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"OTEL_LOG_FORMAT" envDefault:"json"`

	// Missed votes and plugin failures are reported to Sentry when a DSN is set.
	SentryDsn string `env:"OTEL_SENTRY_DSN"`
	SentryENV string `env:"OTEL_SENTRY_ENV"`

	// MetricsStatsdAddr receives the vote and interval counters. Counters stay in memory when empty.
	MetricsStatsdAddr string `env:"FEEDER_METRICS_STATSD_ADDR"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse telemetry config")
	}
	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate telemetry config")
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if ParseLogFormat(cfg.LogFormat) == LogFormatUndefined {
		return eris.Errorf("invalid log format %q, expected json or pretty", cfg.LogFormat)
	}
	// Exporter settings are irrelevant while spans stay in process.
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return eris.New("collector endpoint is required when span export is enabled")
	}
	return validateSampleRate(cfg.TraceSampleRate)
}

func (cfg *Config) applyToOptions(opt *Options) {
	opt.Endpoint = cfg.Endpoint
	opt.TraceSampleRate = cfg.TraceSampleRate
	opt.LogLevel = cfg.LogLevel
	opt.LogFormat = ParseLogFormat(cfg.LogFormat)
	opt.StatsdAddr = cfg.MetricsStatsdAddr
	opt.SentryOptions.Dsn = cfg.SentryDsn
	opt.SentryOptions.Environment = cfg.SentryENV
}

// Options configures the telemetry of one feeder process. The feeder fills in the identity fields;
// the rest usually comes from Config.
type Options struct {
	ServiceName    string // Prefixes component loggers and names the tracer
	ServiceVersion string

	// ResourceAttributes identify the feeder on every exported span, such as its chain and validator.
	ResourceAttributes map[string]string

	Endpoint        string
	TraceSampleRate float64
	LogLevel        string
	LogFormat       LogFormat
	LogOutput       io.Writer // Defaults to stdout
	StatsdAddr      string

	SentryOptions sentry.Options
}

// newDefaultOptions leaves the required fields invalid so that validate fails unless the config or
// the caller provides them.
func newDefaultOptions() Options {
	return Options{
		ServiceVersion:  "dev",
		TraceSampleRate: -1.0,
		LogFormat:       LogFormatUndefined,
	}
}

// apply overrides opt with every non-zero field of newOpt. Collector and sentry connection settings
// only come from the environment.
func (opt *Options) apply(newOpt Options) {
	override(&opt.ServiceName, newOpt.ServiceName)
	override(&opt.ServiceVersion, newOpt.ServiceVersion)
	override(&opt.TraceSampleRate, newOpt.TraceSampleRate)
	override(&opt.LogLevel, newOpt.LogLevel)
	override(&opt.LogFormat, newOpt.LogFormat)
	override(&opt.LogOutput, newOpt.LogOutput)
	override(&opt.StatsdAddr, newOpt.StatsdAddr)
	override(&opt.SentryOptions.Release, newOpt.SentryOptions.Release)
	if newOpt.ResourceAttributes != nil {
		opt.ResourceAttributes = newOpt.ResourceAttributes
	}
	if newOpt.SentryOptions.Tags != nil {
		opt.SentryOptions.Tags = newOpt.SentryOptions.Tags
	}
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func (opt *Options) validate() error {
	switch {
	case opt.ServiceName == "":
		return eris.New("service name is required")
	case opt.Endpoint == "":
		return eris.New("collector endpoint is required")
	case opt.LogFormat == LogFormatUndefined:
		return eris.New("log format is required")
	}
	if err := validateLogLevel(opt.LogLevel); err != nil {
		return err
	}
	return validateSampleRate(opt.TraceSampleRate)
}

func validateLogLevel(level string) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(level)); err != nil {
		return eris.Errorf("invalid log level %q, expected debug, info, warn or error", level)
	}
	return nil
}

func validateSampleRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return eris.Errorf("trace sample rate %v is outside [0, 1]", rate)
	}
	return nil
}

// LogFormat selects how the feeder writes its logs.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota // Rejected by validate
	LogFormatJSON                       // One JSON object per line, for log shippers
	LogFormatPretty                     // Colored console output, for operators at a terminal
)

var logFormatNames = [...]string{
	LogFormatUndefined: "undefined",
	LogFormatJSON:      "json",
	LogFormatPretty:    "pretty",
}

func (f LogFormat) String() string {
	if int(f) < len(logFormatNames) {
		return logFormatNames[f]
	}
	return logFormatNames[LogFormatUndefined]
}

// ParseLogFormat is case-insensitive. Unknown names yield LogFormatUndefined.
func ParseLogFormat(s string) LogFormat {
	s = strings.ToLower(s)
	for f, name := range logFormatNames {
		if f != int(LogFormatUndefined) && name == s {
			return LogFormat(f)
		}
	}
	return LogFormatUndefined
}
