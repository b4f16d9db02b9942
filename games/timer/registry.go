/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package timer keeps named, single-fire timers for a game session.
//
// Each name holds at most one live timer. Starting a timer under a name that
// is already armed cancels the old one first. A timer either fires or is
// cancelled, never both: the decision is made under the registry lock, so a
// Cancel racing an expiry reports which side won.
package timer

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TickFunc receives the whole seconds left on a timer, rounded up.
// It must not call back into the Registry that owns the timer.
type TickFunc func(secondsRemaining int)

type entry struct {
	name     string
	start    time.Time
	duration time.Duration

	timer  clockwork.Timer
	ticker clockwork.Ticker
	stop   chan struct{}

	// mu serialises tick delivery against release, so no tick is
	// delivered once the timer has fired or been cancelled.
	mu   sync.Mutex
	live bool
}

type Registry struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]*entry
}

func New(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Registry{
		clock:  clock,
		timers: make(map[string]*entry),
	}
}

// Start arms a timer named name that calls onExpire once after d.
// onTick, when non-nil, is called every second until the timer fires or is
// cancelled.
func (r *Registry) Start(name string, d time.Duration, onExpire func(), onTick TickFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[name]; ok {
		r.releaseLocked(old)
	}

	e := &entry{
		name:     name,
		start:    r.clock.Now(),
		duration: d,
		stop:     make(chan struct{}),
		live:     true,
	}

	e.timer = r.clock.AfterFunc(d, func() {
		r.fire(e, onExpire)
	})

	if onTick != nil {
		e.ticker = r.clock.NewTicker(time.Second)
		go r.tick(e, onTick)
	}

	r.timers[name] = e
}

// Cancel stops the named timer. It reports whether a live timer was
// cancelled; unknown and already-fired timers are ignored.
func (r *Registry) Cancel(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.timers[name]
	if !ok {
		return false
	}

	r.releaseLocked(e)

	return true
}

// CancelAll stops every live timer.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.timers {
		r.releaseLocked(e)
	}
}

// Remaining returns the time left on the named timer, or zero when no such
// timer is live. It is derived from the clock, not from delivered ticks.
func (r *Registry) Remaining(name string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.timers[name]
	if !ok {
		return 0
	}

	return r.remaining(e)
}

// active reports whether a timer with the given name is armed.
func (r *Registry) active(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.timers[name]

	return ok
}

func (r *Registry) remaining(e *entry) time.Duration {
	left := e.duration - r.clock.Since(e.start)
	if left < 0 {
		return 0
	}

	return left
}

func (r *Registry) fire(e *entry, onExpire func()) {
	r.mu.Lock()
	if !e.live {
		r.mu.Unlock()

		return
	}
	r.releaseLocked(e)
	r.mu.Unlock()

	onExpire()
}

func (r *Registry) tick(e *entry, onTick TickFunc) {
	for {
		select {
		case <-e.stop:
			return
		case <-e.ticker.Chan():
			left := r.remainingSnapshot(e)

			e.mu.Lock()
			if !e.live {
				e.mu.Unlock()

				return
			}
			onTick(int(math.Ceil(left.Seconds())))
			e.mu.Unlock()

			if left <= 0 {
				return
			}
		}
	}
}

func (r *Registry) remainingSnapshot(e *entry) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.remaining(e)
}

// releaseLocked marks e inert and frees its clock resources. r.mu must be held.
func (r *Registry) releaseLocked(e *entry) {
	e.mu.Lock()
	wasLive := e.live
	e.live = false
	e.mu.Unlock()

	if !wasLive {
		return
	}

	e.timer.Stop()
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stop)

	if cur, ok := r.timers[e.name]; ok && cur == e {
		delete(r.timers, e.name)
	}
}
