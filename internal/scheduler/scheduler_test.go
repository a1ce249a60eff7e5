package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skipCounter struct {
	n atomic.Int32
}

func (c *skipCounter) ObserveSkippedRun() { c.n.Add(1) }

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	s := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, 20*time.Millisecond, time.Second, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestScheduler_NeverOverlaps(t *testing.T) {
	release := make(chan struct{})
	var active, maxActive, runs atomic.Int32
	skips := &skipCounter{}

	s := New(func(context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		runs.Add(1)
		<-release
		return nil
	}, 10*time.Millisecond, 5*time.Second, skips, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return skips.n.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())
	close(release)
	cancel()
	<-done

	assert.Equal(t, int32(1), maxActive.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
	assert.False(t, s.Running())
}

func TestScheduler_RunHasDeadline(t *testing.T) {
	deadlineHit := make(chan error, 1)
	s := New(func(ctx context.Context) error {
		<-ctx.Done()
		deadlineHit <- ctx.Err()
		return ctx.Err()
	}, time.Hour, 20*time.Millisecond, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	select {
	case err := <-deadlineHit:
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(2 * time.Second):
		t.Fatal("run was not bounded by its deadline")
	}
}

func TestScheduler_Trigger(t *testing.T) {
	var runs atomic.Int32
	s := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, time.Hour, time.Second, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 && !s.Running() }, time.Second, 5*time.Millisecond)
	s.Trigger()
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
