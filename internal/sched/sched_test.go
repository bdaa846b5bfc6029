package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/krti/uavcore/log2"
)

func testClock(start int64) (*int64, func() int64) {
	now := start
	return &now, func() int64 { return now }
}

func TestTickRunsDueTasksOnly(t *testing.T) {
	t.Parallel()
	now, clock := testClock(0)
	s := New(log2.NewTest(t, log2.LDebug), clock)
	ctx := context.Background()

	fastRuns, slowRuns := 0, 0
	s.Register("fast", 10*time.Millisecond, func(context.Context) Status { fastRuns++; return Done })
	s.Register("slow", 100*time.Millisecond, func(context.Context) Status { slowRuns++; return Done })

	// both due at t=0
	assert.Equal(t, 2, s.Tick(ctx))
	// nothing due yet
	assert.Equal(t, 0, s.Tick(ctx))
	*now = int64(10 * time.Millisecond)
	assert.Equal(t, 1, s.Tick(ctx))
	*now = int64(100 * time.Millisecond)
	s.Tick(ctx)
	assert.Equal(t, 3, fastRuns)
	assert.Equal(t, 2, slowRuns)
}

func TestTickPriorityOrder(t *testing.T) {
	t.Parallel()
	_, clock := testClock(0)
	s := New(log2.NewTest(t, log2.LDebug), clock)

	order := []string{}
	mk := func(name string) TaskFunc {
		return func(context.Context) Status {
			order = append(order, name)
			return Done
		}
	}
	// registration order is priority order within a tick
	s.Register("sensor", time.Second, mk("sensor"))
	s.Register("gps", time.Second, mk("gps"))
	s.Register("send", time.Second, mk("send"))
	s.Register("command", time.Second, mk("command"))

	s.Tick(context.Background())
	assert.Equal(t, []string{"sensor", "gps", "send", "command"}, order)
}

func TestPendingRepolledEveryTick(t *testing.T) {
	t.Parallel()
	now, clock := testClock(0)
	s := New(log2.NewTest(t, log2.LDebug), clock)
	ctx := context.Background()

	polls := 0
	s.Register("io", time.Hour, func(context.Context) Status {
		polls++
		if polls < 3 {
			return Pending
		}
		return Done
	})

	s.Tick(ctx)
	s.Tick(ctx)
	s.Tick(ctx)
	assert.Equal(t, 3, polls)
	// done: parked for a full period now
	*now += int64(time.Minute)
	s.Tick(ctx)
	assert.Equal(t, 3, polls)
	*now += int64(time.Hour)
	s.Tick(ctx)
	assert.Equal(t, 4, polls)
}

func TestDisableEnable(t *testing.T) {
	t.Parallel()
	now, clock := testClock(0)
	s := New(log2.NewTest(t, log2.LDebug), clock)
	ctx := context.Background()

	runs := 0
	task := s.Register("poll", time.Millisecond, func(context.Context) Status { runs++; return Done })

	s.Tick(ctx)
	assert.Equal(t, 1, runs)
	task.Disable()
	assert.False(t, task.Enabled())
	*now += int64(time.Hour)
	s.Tick(ctx)
	assert.Equal(t, 1, runs)
	task.Enable()
	s.Tick(ctx)
	assert.Equal(t, 2, runs)
}

// One tick must complete in bounded time for ≤10 tasks whether or not
// they are due, with no sleeping anywhere on the path.
func TestTickBounded(t *testing.T) {
	t.Parallel()
	now, clock := testClock(0)
	s := New(log2.NewTest(t, log2.LInfo), clock)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Register(string(rune('a'+i)), time.Duration(i+1)*time.Millisecond,
			func(context.Context) Status { return Done })
	}
	start := time.Now()
	const iterations = 1000
	for i := 0; i < iterations; i++ {
		*now += int64(time.Millisecond)
		s.Tick(ctx)
	}
	elapsed := time.Since(start)
	t.Logf("avg tick=%v", elapsed/iterations)
	assert.Less(t, elapsed, 1*time.Second)
}

func BenchmarkTick10Tasks(b *testing.B) {
	now := int64(0)
	s := New(nil, func() int64 { return now })
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Register(string(rune('a'+i)), time.Millisecond, func(context.Context) Status { return Done })
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		now += int64(time.Millisecond)
		s.Tick(ctx)
	}
}
