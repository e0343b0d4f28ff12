package event

import (
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	DefaultEventType       = "oracle.v1.EventVoteIntervalEnds"
	DefaultCloseHeightAttr = "vote_interval_close_block_height"
	DefaultEndTimeAttr     = "time_millis"

	defaultMaxRetries     = 10
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	defaultAckTimeout     = 10 * time.Second
	defaultReadTimeout    = time.Minute
)

type WatcherOptions struct {
	URL             string // Websocket endpoint of the node, e.g. ws://localhost:26657/websocket
	EventType       string // Typed event emitted by the oracle module when an interval ends
	CloseHeightAttr string // Attribute carrying the interval close height
	EndTimeAttr     string // Attribute carrying the interval end time in unix millis

	MaxRetries     uint64        // Subscription retries before giving up
	InitialBackoff time.Duration // First retry delay
	MaxBackoff     time.Duration // Retry delay ceiling
	AckTimeout     time.Duration // How long to wait for the subscribe acknowledgement
	ReadTimeout    time.Duration // Silence on the socket longer than this forces a resubscribe

	Logger *zerolog.Logger
	Dialer *websocket.Dialer
}

func newDefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		EventType:       DefaultEventType,
		CloseHeightAttr: DefaultCloseHeightAttr,
		EndTimeAttr:     DefaultEndTimeAttr,
		MaxRetries:      defaultMaxRetries,
		InitialBackoff:  defaultInitialBackoff,
		MaxBackoff:      defaultMaxBackoff,
		AckTimeout:      defaultAckTimeout,
		ReadTimeout:     defaultReadTimeout,
		Logger:          nil,
		Dialer:          websocket.DefaultDialer,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *WatcherOptions) apply(newOpt WatcherOptions) {
	if newOpt.URL != "" {
		opt.URL = newOpt.URL
	}
	if newOpt.EventType != "" {
		opt.EventType = newOpt.EventType
	}
	if newOpt.CloseHeightAttr != "" {
		opt.CloseHeightAttr = newOpt.CloseHeightAttr
	}
	if newOpt.EndTimeAttr != "" {
		opt.EndTimeAttr = newOpt.EndTimeAttr
	}
	if newOpt.MaxRetries != 0 {
		opt.MaxRetries = newOpt.MaxRetries
	}
	if newOpt.InitialBackoff != 0 {
		opt.InitialBackoff = newOpt.InitialBackoff
	}
	if newOpt.MaxBackoff != 0 {
		opt.MaxBackoff = newOpt.MaxBackoff
	}
	if newOpt.AckTimeout != 0 {
		opt.AckTimeout = newOpt.AckTimeout
	}
	if newOpt.ReadTimeout != 0 {
		opt.ReadTimeout = newOpt.ReadTimeout
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Dialer != nil {
		opt.Dialer = newOpt.Dialer
	}
}

func (opt *WatcherOptions) validate() error {
	if opt.URL == "" {
		return eris.New("websocket url cannot be empty")
	}
	u, err := url.Parse(opt.URL)
	if err != nil {
		return eris.Wrapf(err, "invalid websocket url %q", opt.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return eris.Errorf("websocket url must use ws or wss, got %q", u.Scheme)
	}
	if opt.EventType == "" {
		return eris.New("event type cannot be empty")
	}
	if opt.CloseHeightAttr == "" {
		return eris.New("close height attribute cannot be empty")
	}
	if opt.InitialBackoff > opt.MaxBackoff {
		return eris.New("initial backoff cannot exceed max backoff")
	}
	return nil
}
