package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

type countdownState int

const (
	countdownIdle countdownState = iota
	countdownRunning
	countdownExpired
)

// Countdown ticks against an absolute deadline. Every tick recomputes the remaining seconds from
// the clock, so delayed or missed ticks never accumulate drift. Expiry fires exactly once per Start.
// Callbacks run without the countdown lock held.
type Countdown struct {
	mu       sync.Mutex
	clock    clock.WithTicker
	interval time.Duration
	onTick   func(remaining int)
	logger   zerolog.Logger

	state     countdownState
	deadline  time.Time
	remaining int
	onExpire  func()
	gen       uint64
	stop      chan struct{}
}

func NewCountdown(clk clock.WithTicker, interval time.Duration, onTick func(remaining int), logger zerolog.Logger) *Countdown {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		clock:    clk,
		interval: interval,
		onTick:   onTick,
		logger:   logger.With().Str("component", "countdown").Logger(),
	}
}

// Start (re)arms the countdown for deadline, replacing any previous run.
func (c *Countdown) Start(deadline time.Time, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	c.state = countdownRunning
	c.deadline = deadline
	c.remaining = RemainingSeconds(deadline, c.clock.Now())
	c.onExpire = onExpire
	c.stop = make(chan struct{})

	go c.run(c.gen, c.clock.NewTicker(c.interval), c.stop)

	c.logger.Debug().Time("deadline", deadline).Int("remaining", c.remaining).Msg("countdown started")
}

// Stop returns the countdown to idle and drops any pending expiry. Safe to call repeatedly and
// from any state; it does not wait for the tick goroutine to exit.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.state != countdownIdle {
		c.gen++
	}
	c.state = countdownIdle
	c.onExpire = nil
}

// Tick recomputes the remaining time now. It is what the ticker calls each interval.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
	return c.Remaining()
}

// Remaining returns the value computed at the last tick (or at Start).
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == countdownRunning
}

func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == countdownExpired
}

func (c *Countdown) run(gen uint64, ticker clock.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick reports whether the run identified by gen should keep ticking.
func (c *Countdown) tick(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || c.state != countdownRunning {
		c.mu.Unlock()
		return false
	}

	c.remaining = RemainingSeconds(c.deadline, c.clock.Now())
	remaining := c.remaining
	var expire func()
	if remaining == 0 {
		c.state = countdownExpired
		expire = c.onExpire
		c.onExpire = nil
		if c.stop != nil {
			close(c.stop)
			c.stop = nil
		}
	}
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expire != nil {
		c.logger.Debug().Msg("countdown expired")
		expire()
	}
	return remaining > 0
}
