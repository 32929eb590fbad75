package cleanup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellia/prospectord/pkg/config"
)

type fakePurger struct {
	calls    int64
	toReturn int64
	cutoffs  []time.Time
}

func (f *fakePurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	atomic.AddInt64(&f.calls, 1)
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.toReturn, nil
}

func TestServicePurgesImmediatelyThenOnInterval(t *testing.T) {
	purger := &fakePurger{toReturn: 3}
	svc := NewService(config.RetentionConfig{JobTTL: time.Hour, Interval: 10 * time.Millisecond}, purger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&purger.calls) >= 2
	}, time.Second, time.Millisecond, "expected at least an immediate purge plus one tick")
}

func TestServiceWithNilStoreNeverStarts(t *testing.T) {
	svc := NewService(config.RetentionConfig{JobTTL: time.Hour, Interval: time.Millisecond}, nil)
	svc.Start(context.Background())
	assert.Nil(t, svc.cancel, "a nil store has nothing to purge, Start must be a no-op")
	svc.Stop() // must not block or panic when never started
}

func TestServiceStopIsIdempotentBeforeStart(t *testing.T) {
	svc := NewService(config.RetentionConfig{}, &fakePurger{})
	svc.Stop()
}
