package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"
)

var (
	// ErrSubscriptionFailed is returned by Run when the event subscription could not be
	// (re)established within the configured retries. Hosts treat it as fatal.
	ErrSubscriptionFailed = errors.New("event subscription could not be established")

	errWatcherClosed = errors.New("watcher is shutting down")
)

// Watcher keeps a websocket subscription to a node's event stream and delivers every interval end
// event, in arrival order, on a single channel. It does not deduplicate: if the node replays an
// event after a reconnect, the consumer sees it twice.
type Watcher struct {
	opts WatcherOptions
	log  zerolog.Logger

	events chan IntervalEnd

	connMu sync.Mutex
	conn   *websocket.Conn
	closed bool
	nextID int
}

func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	options := newDefaultWatcherOptions()
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid watcher options")
	}

	log := zerolog.Nop()
	if options.Logger != nil {
		log = *options.Logger
	}

	return &Watcher{
		opts:   options,
		log:    log,
		events: make(chan IntervalEnd),
	}, nil
}

// Events returns the delivery channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan IntervalEnd {
	return w.events
}

// Query is the tendermint subscription query sent to the node.
func (w *Watcher) Query() string {
	return fmt.Sprintf("tm.event='NewBlock' AND %s EXISTS", w.heightKey())
}

// Run subscribes and pumps events until ctx is cancelled (returns nil) or the subscription cannot
// be re-established (returns ErrSubscriptionFailed). This method blocks; run it in a goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.shutdown()

	stop := context.AfterFunc(ctx, w.shutdown)
	defer stop()

	for {
		if err := w.subscribeWithRetry(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err := w.pump(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn().Err(err).Msg("event stream interrupted, resubscribing")
	}
}

// subscribeWithRetry dials and subscribes, backing off exponentially between attempts.
func (w *Watcher) subscribeWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialBackoff
	b.MaxInterval = w.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, w.opts.MaxRetries), ctx)

	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			err := w.subscribe(ctx)
			if errors.Is(err, errWatcherClosed) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, next time.Duration) {
			w.log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", next).Msg("event subscription failed")
		},
	)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, errWatcherClosed) {
			return eris.Wrap(err, "subscription aborted")
		}
		return eris.Wrapf(ErrSubscriptionFailed, "gave up after %d attempts: %v", attempts, err)
	}

	w.log.Info().Str("url", w.opts.URL).Str("query", w.Query()).Msg("subscribed to vote interval events")
	return nil
}

// subscribe replaces the current connection with a fresh one and waits for the subscription to be
// acknowledged.
func (w *Watcher) subscribe(ctx context.Context) error {
	w.dropConn()

	conn, _, err := w.opts.Dialer.DialContext(ctx, w.opts.URL, nil) //nolint:bodyclose // no need.
	if err != nil {
		return eris.Wrap(err, "websocket dial failed")
	}

	w.connMu.Lock()
	w.nextID++
	id := w.nextID
	w.connMu.Unlock()

	req, err := rpctypes.MapToRequest(rpctypes.JSONRPCIntID(id), "subscribe", map[string]interface{}{
		"query": w.Query(),
	})
	if err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "failed to build subscribe request")
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "failed to send subscribe request")
	}

	if err := conn.SetReadDeadline(time.Now().Add(w.opts.AckTimeout)); err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "failed to set read deadline")
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "no subscribe acknowledgement")
	}
	var resp rpctypes.RPCResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		_ = conn.Close()
		return eris.Wrap(err, "malformed subscribe acknowledgement")
	}
	if resp.Error != nil {
		_ = conn.Close()
		return eris.Errorf("subscribe rejected: %s", resp.Error.Error())
	}

	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(w.opts.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.closed {
		_ = conn.Close()
		return errWatcherClosed
	}
	w.conn = conn
	return nil
}

// pump reads from the current connection until it fails, forwarding matching events.
func (w *Watcher) pump(ctx context.Context) error {
	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()
	if conn == nil {
		return eris.New("no active connection")
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(w.opts.ReadTimeout)); err != nil {
			return eris.Wrap(err, "failed to set read deadline")
		}
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			return eris.Wrap(err, "read from websocket failed")
		}
		if messageType != websocket.TextMessage {
			w.log.Debug().Int("type", messageType).Msg("ignoring non-text websocket message")
			continue
		}

		ev, ok, err := w.decode(msg)
		if err != nil {
			w.log.Error().Err(err).Msg("unable to decode event message")
			continue
		}
		if !ok {
			continue
		}

		select {
		case w.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resultEvent mirrors tendermint's coretypes.ResultEvent without decoding the block payload.
type resultEvent struct {
	Query  string              `json:"query"`
	Data   json.RawMessage     `json:"data"`
	Events map[string][]string `json:"events"`
}

// decode extracts an IntervalEnd from a JSON-RPC message. ok is false for messages that are not
// interval end events, such as the subscribe acknowledgement.
func (w *Watcher) decode(msg []byte) (IntervalEnd, bool, error) {
	var resp rpctypes.RPCResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return IntervalEnd{}, false, eris.Wrap(err, "malformed json-rpc response")
	}
	if resp.Error != nil {
		return IntervalEnd{}, false, eris.Errorf("node returned error: %s", resp.Error.Error())
	}
	if len(resp.Result) == 0 {
		return IntervalEnd{}, false, nil
	}

	var res resultEvent
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return IntervalEnd{}, false, eris.Wrap(err, "malformed result event")
	}

	heights := res.Events[w.heightKey()]
	if len(heights) == 0 {
		return IntervalEnd{}, false, nil
	}
	height, err := strconv.ParseInt(unquote(heights[0]), 10, 64)
	if err != nil {
		return IntervalEnd{}, false, eris.Wrapf(err, "invalid close height %q", heights[0])
	}

	ev := IntervalEnd{CloseHeight: height, ObservedAt: time.Now()}
	if w.opts.EndTimeAttr != "" {
		if vals := res.Events[w.opts.EventType+"."+w.opts.EndTimeAttr]; len(vals) > 0 {
			millis, err := strconv.ParseInt(unquote(vals[0]), 10, 64)
			if err != nil {
				return IntervalEnd{}, false, eris.Wrapf(err, "invalid end time %q", vals[0])
			}
			ev.EndTime = time.UnixMilli(millis)
		}
	}
	return ev, true, nil
}

func (w *Watcher) heightKey() string {
	return w.opts.EventType + "." + w.opts.CloseHeightAttr
}

func (w *Watcher) dropConn() {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

// shutdown closes the connection so a blocked read returns, and prevents new connections.
func (w *Watcher) shutdown() {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	w.closed = true
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

// Typed events JSON-encode their attribute values, so strings arrive quoted.
func unquote(s string) string {
	return strings.Trim(s, `"`)
}
