package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/oracle-feeder/pkg/lifecycle"
)

type recordingService struct {
	lifecycle.Lifecycle
	name     string
	startErr error
	log      *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	return s.StartWith(ctx, func(context.Context) error {
		if s.startErr != nil {
			return s.startErr
		}
		*s.log = append(*s.log, "start:"+s.name)
		return nil
	})
}

func (s *recordingService) Stop(ctx context.Context) error {
	return s.StopWith(ctx, func(context.Context) error {
		*s.log = append(*s.log, "stop:"+s.name)
		return nil
	})
}

func TestLifecycle_Transitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var l lifecycle.Lifecycle
	assert.Equal(t, lifecycle.StateNotStarted, l.State())
	assert.False(t, l.IsStarted())

	var seen lifecycle.State
	require.NoError(t, l.StartWith(ctx, func(context.Context) error {
		seen = l.State()
		return nil
	}))
	assert.Equal(t, lifecycle.StateStarting, seen)
	assert.True(t, l.IsStarted())

	// Starting twice is rejected.
	require.Error(t, l.StartWith(ctx, nil))

	require.NoError(t, l.StopWith(ctx, func(context.Context) error {
		seen = l.State()
		return nil
	}))
	assert.Equal(t, lifecycle.StateStopping, seen)
	assert.Equal(t, lifecycle.StateStopped, l.State())
}

func TestLifecycle_FailedStartCanRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var l lifecycle.Lifecycle
	err := l.StartWith(ctx, func(context.Context) error { return errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, lifecycle.StateNotStarted, l.State())

	require.NoError(t, l.StartWith(ctx, nil))
	assert.True(t, l.IsStarted())
}

func TestLifecycle_StopNeverStarted(t *testing.T) {
	t.Parallel()

	var l lifecycle.Lifecycle
	require.NoError(t, l.StopWith(context.Background(), func(context.Context) error {
		t.Fatal("stop hook must not run for a service that never started")
		return nil
	}))
	assert.Equal(t, lifecycle.StateStopped, l.State())
}

func TestGroup_StartStopOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls []string
	a := &recordingService{name: "a", log: &calls}
	b := &recordingService{name: "b", log: &calls}
	g := lifecycle.NewGroup(zerolog.Nop(), a, b)

	require.NoError(t, g.Start(ctx))
	require.NoError(t, g.Stop(ctx))
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, calls)
}

func TestGroup_StartFailureStopsStarted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls []string
	a := &recordingService{name: "a", log: &calls}
	b := &recordingService{name: "b", log: &calls, startErr: errors.New("no redis")}
	c := &recordingService{name: "c", log: &calls}
	g := lifecycle.NewGroup(zerolog.Nop(), a, b, c)

	err := g.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start b")
	assert.Equal(t, []string{"start:a", "stop:a"}, calls)
	assert.Equal(t, lifecycle.StateNotStarted, c.State())
}
