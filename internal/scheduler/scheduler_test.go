package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berealtors/wrapsheet/internal/metrics"
)

// tick fires every d, below the one-second floor of cron specs.
type tick time.Duration

func (d tick) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduleKeepsRunningAfterFailures(t *testing.T) {
	m := metrics.New()
	s := New(quietLogger(), m)
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	s.Schedule(ctx, "flaky", tick(5*time.Millisecond), func(ctx context.Context) error {
		n := runs.Add(1)
		if n == 3 {
			panic("boom")
		}
		if n%2 == 1 {
			return errors.New("upstream down")
		}
		return nil
	})

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.JobRuns.WithLabelValues("flaky", "error")), 2.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.JobRuns.WithLabelValues("flaky", "ok")), 1.0)
}

func TestScheduleSkipsOverlappingRuns(t *testing.T) {
	s := New(quietLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var active, peak, runs atomic.Int32
	s.Schedule(ctx, "slow", tick(2*time.Millisecond), func(context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		runs.Add(1)
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Wait()
	if peak.Load() != 1 {
		t.Fatalf("runs overlapped: peak concurrency %d", peak.Load())
	}
}

func TestWaitBlocksForInFlightRun(t *testing.T) {
	s := New(quietLogger(), nil)
	started := make(chan struct{})
	var finished atomic.Bool
	var once atomic.Bool
	s.Schedule(context.Background(), "long", tick(time.Millisecond), func(context.Context) error {
		if !once.CompareAndSwap(false, true) {
			return nil
		}
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	<-started
	s.Wait()
	assert.True(t, finished.Load())
}

func TestEveryRejectsBadIntervals(t *testing.T) {
	s := New(nil, nil)
	defer s.Wait()

	called := false
	require.NoError(t, s.Every(context.Background(), "off", 0, func(context.Context) error {
		called = true
		return nil
	}))
	assert.False(t, called)
	assert.Empty(t, s.cron.Entries())

	err := s.Every(context.Background(), "fast", 10*time.Millisecond, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below one second")
}

func TestEveryRegistersCronEntry(t *testing.T) {
	s := New(quietLogger(), nil)
	defer s.Wait()

	before := time.Now().UTC()
	require.NoError(t, s.Every(context.Background(), "office_sync", 24*time.Hour, func(context.Context) error { return nil }))
	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Schedule.Next(before)
	assert.WithinDuration(t, before.Add(24*time.Hour), next, time.Second)
}

func TestSpecRejectsMalformedExpression(t *testing.T) {
	s := New(quietLogger(), nil)
	defer s.Wait()
	err := s.Spec(context.Background(), "nightly", "not a cron line", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nightly")
	require.NoError(t, s.Spec(context.Background(), "nightly", "0 6 * * *", func(context.Context) error { return nil }))
	assert.Len(t, s.cron.Entries(), 1)
}
