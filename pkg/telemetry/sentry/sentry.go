// Package sentry reports panics and fatal errors. Every function is a no-op until New is called
// with a DSN.
package sentry

import (
	"context"
	"errors"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"
)

const defaultFlushTimeout = 5 * time.Second

type Options struct {
	Dsn         string
	Environment string
	Release     string
	Tags        map[string]string
}

// New sets up Sentry using the provided options.
// If the DSN is empty, initialization is skipped.
func New(opt Options) error {
	if opt.Dsn == "" {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         opt.Dsn,
		Environment: opt.Environment,
		Release:     opt.Release,
		Tags:        opt.Tags,
		BeforeSend:  dropCancellations,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize sentry")
	}
	return nil
}

// Shutdown by signal surfaces as context.Canceled; it is not an incident.
func dropCancellations(event *sentrygo.Event, hint *sentrygo.EventHint) *sentrygo.Event {
	if hint != nil && hint.OriginalException != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// RecoverAndFlush captures a panic (if any) and flushes buffered events.
// If repanic is true, the panic is rethrown after flush to preserve crash semantics.
func RecoverAndFlush(repanic bool) {
	if !isInitialized() {
		return
	}
	if r := recover(); r != nil {
		sentrygo.CurrentHub().Recover(r)
		sentrygo.Flush(defaultFlushTimeout)
		if repanic {
			panic(r)
		}
		return
	}
	sentrygo.Flush(defaultFlushTimeout)
}

// CaptureException reports a handled error, tagged with the trace it happened in and any extra
// tags. The eris stack trace is attached as context.
func CaptureException(ctx context.Context, err error, tags ...map[string]string) {
	if !isInitialized() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			scope.SetTag("trace_id", spanCtx.TraceID().String())
			scope.SetTag("span_id", spanCtx.SpanID().String())
		}
		for _, t := range tags {
			scope.SetTags(t)
		}
		scope.SetContext("eris", sentrygo.Context{"trace": eris.ToString(err, true)})
		sentrygo.CaptureException(err)
	})
}

// Shutdown flushes buffered events within timeout, or sooner if ctx expires first.
func Shutdown(ctx context.Context, timeout time.Duration) {
	if !isInitialized() {
		return
	}
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	sentrygo.Flush(timeout)
}

func isInitialized() bool {
	return sentrygo.CurrentHub().Client() != nil
}
