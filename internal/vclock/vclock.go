// Package vclock maintains a virtual clock that advances as a function of
// real elapsed time, a speed multiplier, and a direction flag, and emits
// second/minute/hour transition events to subscribers.
//
// The clock is driven by its own goroutine on a fixed-period ticker rather
// than any rendering loop, so it keeps advancing while a frontend is hidden
// or backgrounded. Stopping joins the goroutine: no events fire after Stop
// returns.
package vclock

import (
	"log"
	"sync"
	"time"
)

const (
	// TickPeriod is the real-time tick interval (~60 Hz).
	TickPeriod = 16 * time.Millisecond

	MinSpeed = 0.1
	MaxSpeed = 10.0
)

// Kind identifies which clock field rolled over.
type Kind int

const (
	KindSecond Kind = iota
	KindMinute
	KindHour
)

func (k Kind) String() string {
	switch k {
	case KindSecond:
		return "second"
	case KindMinute:
		return "minute"
	case KindHour:
		return "hour"
	}
	return "unknown"
}

// Transition is delivered to subscribers when an integer clock field changes.
// If speed is high enough that several integer seconds pass within one tick,
// only the final value is reported; skipped intermediates are not replayed.
type Transition struct {
	Kind    Kind
	Value   int
	Virtual time.Time
}

// Time is a decomposed clock reading.
type Time struct {
	Hour     int // 1-12
	Minute   int
	Second   int
	Fraction float64 // sub-second, 0..1
}

type subscriber struct {
	id string
	fn func(Transition)
}

// Clock is the virtual time engine. The zero value is not usable; call New.
type Clock struct {
	mu       sync.Mutex
	virtual  time.Time
	tracked  time.Time // last real timestamp used to compute a delta
	speed    float64
	reverse  bool
	running  bool
	prev     Time
	subs     []subscriber
	stop     chan struct{}
	done     chan struct{}
}

// New creates a clock seeded from the current wall-clock time, stopped.
func New() *Clock {
	now := time.Now()
	c := &Clock{virtual: now, tracked: now, speed: 1}
	c.prev = c.decompose()
	return c
}

// Start begins ticking. No-op when already running. The virtual clock resumes
// from wherever it was left; use Reset to resync to real time.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.tracked = time.Now()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(TickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				now := time.Now()
				c.mu.Lock()
				real := now.Sub(c.tracked)
				c.tracked = now
				c.mu.Unlock()
				c.Advance(real)
			}
		}
	}()
}

// Stop halts ticking without resetting virtual time. Idempotent. It returns
// only after the tick goroutine has exited, so no transition callback runs
// after Stop.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	close(stop)
	<-done
}

// Reset resyncs the virtual clock to the current wall-clock time.
func (c *Clock) Reset() {
	c.mu.Lock()
	now := time.Now()
	c.virtual = now
	c.tracked = now
	c.prev = c.decompose()
	c.mu.Unlock()
}

// Advance applies a real elapsed duration to the virtual clock: the delta is
// scaled by speed, signed by direction, and added to the accumulator, then
// transition events are emitted for every integer field that changed. The
// ticker calls this; tests may call it directly for deterministic control.
func (c *Clock) Advance(real time.Duration) {
	c.mu.Lock()
	delta := time.Duration(float64(real) * c.speed)
	if c.reverse {
		delta = -delta
	}
	c.virtual = c.virtual.Add(delta)
	now := c.decompose()
	prev := c.prev
	c.prev = now
	virtual := c.virtual
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	// At most one event per kind per tick, second then minute then hour.
	if now.Second != prev.Second {
		deliver(subs, Transition{Kind: KindSecond, Value: now.Second, Virtual: virtual})
	}
	if now.Minute != prev.Minute {
		deliver(subs, Transition{Kind: KindMinute, Value: now.Minute, Virtual: virtual})
	}
	if now.Hour != prev.Hour {
		deliver(subs, Transition{Kind: KindHour, Value: now.Hour, Virtual: virtual})
	}
}

func deliver(subs []subscriber, tr Transition) {
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("vclock: subscriber %q panicked on %s event: %v", s.id, tr.Kind, r)
				}
			}()
			s.fn(tr)
		}()
	}
}

// Subscribe registers a callback under an id. Subscribing with an existing id
// replaces that callback in place while keeping its position in delivery
// order (upsert contract).
func (c *Clock) Subscribe(id string, fn func(Transition)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.subs {
		if c.subs[i].id == id {
			c.subs[i].fn = fn
			return
		}
	}
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
}

// Unsubscribe removes a callback. Idempotent.
func (c *Clock) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.subs {
		if c.subs[i].id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// SetSpeed sets the speed multiplier, clamped to [0.1, 10].
func (c *Clock) SetSpeed(speed float64) {
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetReverse sets the direction flag. Reversing while running does not reset
// elapsed time; it only flips the sign of future deltas.
func (c *Clock) SetReverse(reverse bool) {
	c.mu.Lock()
	c.reverse = reverse
	c.mu.Unlock()
}

// Reversed reports whether the clock is running backwards.
func (c *Clock) Reversed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reverse
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Now returns the current clock reading.
func (c *Clock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decompose()
}

// Virtual returns the raw virtual timestamp.
func (c *Clock) Virtual() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.virtual
}

// SetVirtual pins the accumulator to an exact timestamp. Used to seed tests
// and to implement "jump to time" frontends.
func (c *Clock) SetVirtual(t time.Time) {
	c.mu.Lock()
	c.virtual = t
	c.prev = c.decompose()
	c.mu.Unlock()
}

// decompose derives the displayed fields from the accumulator. Callers must
// hold mu.
func (c *Clock) decompose() Time {
	h, m, s := c.virtual.Clock()
	h %= 12
	if h == 0 {
		h = 12
	}
	return Time{
		Hour:     h,
		Minute:   m,
		Second:   s,
		Fraction: float64(c.virtual.Nanosecond()) / 1e9,
	}
}
