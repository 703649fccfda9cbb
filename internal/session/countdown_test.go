package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRemainingSeconds(t *testing.T) {
	cases := []struct {
		name string
		left time.Duration
		want int
	}{
		{"full", 45 * time.Second, 45},
		{"partial second rounds up", 44*time.Second + time.Millisecond, 45},
		{"sub second", 500 * time.Millisecond, 1},
		{"exactly zero", 0, 0},
		{"past", -3 * time.Second, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemainingSeconds(t0.Add(tc.left), t0))
		})
	}
}

// manual returns a countdown whose ticker never fires on its own within a test, so Tick drives it.
func manual(fc *testingclock.FakeClock, onTick func(int)) *Countdown {
	return NewCountdown(fc, time.Hour, onTick, zerolog.Nop())
}

func TestCountdownExpiresOnce(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	var ticks []int
	cd := manual(fc, func(r int) { ticks = append(ticks, r) })

	var expired int32
	cd.Start(t0.Add(3*time.Second), func() { atomic.AddInt32(&expired, 1) })
	assert.True(t, cd.Running())
	assert.Equal(t, 3, cd.Remaining())

	fc.Step(2 * time.Second)
	assert.Equal(t, 1, cd.Tick())

	fc.Step(2 * time.Second)
	assert.Equal(t, 0, cd.Tick())
	assert.Equal(t, 0, cd.Tick())
	assert.Equal(t, 0, cd.Tick())

	assert.Equal(t, int32(1), atomic.LoadInt32(&expired))
	assert.True(t, cd.Expired())
	assert.Equal(t, []int{1, 0}, ticks, "ticks after expiry are suppressed")
}

func TestCountdownSelfCorrectsAfterMissedTicks(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	cd := manual(fc, nil)
	cd.Start(t0.Add(45*time.Second), nil)

	fc.Step(10*time.Second + 300*time.Millisecond)
	assert.Equal(t, 35, cd.Tick())
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	cd := manual(fc, nil)

	cd.Stop()

	var expired int32
	cd.Start(t0.Add(time.Second), func() { atomic.AddInt32(&expired, 1) })
	cd.Stop()
	cd.Stop()

	fc.Step(5 * time.Second)
	cd.Tick()

	assert.False(t, cd.Running())
	assert.False(t, cd.Expired())
	assert.Zero(t, atomic.LoadInt32(&expired))
}

func TestCountdownRestartDropsPreviousExpiry(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	cd := manual(fc, nil)

	var first, second int32
	cd.Start(t0.Add(time.Second), func() { atomic.AddInt32(&first, 1) })
	cd.Start(t0.Add(10*time.Second), func() { atomic.AddInt32(&second, 1) })

	fc.Step(2 * time.Second)
	assert.Equal(t, 8, cd.Tick())

	fc.Step(8 * time.Second)
	assert.Equal(t, 0, cd.Tick())

	assert.Zero(t, atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestCountdownTickerLoop(t *testing.T) {
	fc := testingclock.NewFakeClock(t0)
	cd := NewCountdown(fc, time.Second, nil, zerolog.Nop())

	expired := make(chan struct{})
	cd.Start(t0.Add(3*time.Second), func() { close(expired) })

	require.Eventually(t, fc.HasWaiters, time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		fc.Step(time.Second)
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not expire")
	}
	assert.True(t, cd.Expired())
	assert.Equal(t, 0, cd.Remaining())
}
