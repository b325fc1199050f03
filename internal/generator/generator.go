/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package generator implements the pacing engine (spec component C6): a
// small state machine that invokes a tick callback either on a
// distribution-shaped timer schedule, or once per "fire" event delivered
// on the bus for completion-driven pacing (the PacingMode this package
// makes explicit rather than relying on a None-distribution sentinel).
package generator

import (
	"time"

	"github.com/sabouaram/mcperf/internal/distribution"
	"github.com/sabouaram/mcperf/internal/event"
	"github.com/sabouaram/mcperf/internal/timer"
)

// Tick is called to produce the next unit of work. It returns 0 to
// request another tick (scheduled per the generator's pacing mode) or a
// negative value to signal a terminal state.
type Tick func(arg interface{}) int

// Mode distinguishes the two pacing strategies a Generator can run under.
// Making this an explicit enum (rather than inferring "one-shot" from a
// None distribution) is this package's answer to spec.md's open question
// about the distribution-as-sentinel design.
type Mode int

const (
	// Periodic paces ticks from distribution-drawn delays scheduled on the
	// timer wheel.
	Periodic Mode = iota
	// CompletionDriven fires exactly one tick per matching bus event; used
	// when the configured rate is zero ("fire next only when the previous
	// unit completes").
	CompletionDriven
)

// Clock abstracts "now" so tests can drive a Generator without real time
// passing; the run loop wires this to the shared timer.Wheel's notion of
// now.
type Clock interface {
	Now() time.Time
}

// Generator is one pacing engine instance. Not safe for concurrent use.
type Generator struct {
	wheel *timer.Wheel
	bus   *event.Bus
	clock Clock

	dist *distribution.Distribution
	tick Tick
	arg  interface{}

	mode    Mode
	fireOn  event.Type
	handle  timer.Handle
	armed   bool
	done    bool
	started bool

	startTime time.Time
	nextTime  time.Time
}

// NewPeriodic constructs a timer-paced Generator.
func NewPeriodic(wheel *timer.Wheel, clock Clock, dist *distribution.Distribution, tick Tick, arg interface{}) *Generator {
	return &Generator{wheel: wheel, clock: clock, dist: dist, tick: tick, arg: arg, mode: Periodic}
}

// NewCompletionDriven constructs a Generator that advances once per
// fireOn event published on bus. Appropriate when exactly one instance of
// the generator exists for the whole run (e.g. the single process-wide
// connection generator listening for CONN_DESTROYED): every signal of
// that type genuinely belongs to it, so no filtering is needed.
func NewCompletionDriven(bus *event.Bus, clock Clock, tick Tick, arg interface{}, fireOn event.Type, loc string) *Generator {
	g := &Generator{bus: bus, clock: clock, tick: tick, arg: arg, mode: CompletionDriven, fireOn: fireOn}

	_ = bus.Register(fireOn, g, loc, func(t event.Type, rarg, carg interface{}) {
		gg := rarg.(*Generator)
		gg.onFire()
	})

	return g
}

// NewManual constructs a completion-driven Generator that is advanced by
// direct calls to Fire rather than a bus subscription. The per-connection
// call generator uses this: CALL_DESTROYED is a single global event type,
// but each connection's generator must react only to completions of its
// own calls, which the bus's broadcast dispatch cannot filter for. The
// owning Conn calls Fire from its own completion hook instead.
func NewManual(clock Clock, tick Tick, arg interface{}) *Generator {
	return &Generator{clock: clock, tick: tick, arg: arg, mode: CompletionDriven}
}

// Fire advances a manually-driven (NewManual) generator by one completion
// event. No-op once the generator is done.
func (g *Generator) Fire() {
	g.onFire()
}

// Done reports whether the generator has reached a terminal tick.
func (g *Generator) Done() bool { return g.done }

// Start primes the generator: it calls tick exactly once, synchronously,
// before returning. If that first call is terminal, the generator is
// marked done and no timer is ever scheduled — callers rely on this to
// detect a zero-unit run (e.g. num_conns == 0) without waiting on the
// wheel at all.
func (g *Generator) Start() {
	if g.started {
		return
	}
	g.started = true
	g.startTime = g.clock.Now()

	if g.tick(g.arg) < 0 {
		g.done = true
		return
	}

	if g.mode == Periodic {
		g.scheduleNext()
	}
}

func (g *Generator) onFire() {
	if g.done {
		return
	}

	if g.tick(g.arg) < 0 {
		g.done = true
	}
}

// scheduleNext draws the next delay from the distribution and arms a
// one-shot wheel timer for it.
func (g *Generator) scheduleNext() {
	_, delaySec := g.dist.Next()
	g.nextTime = g.clock.Now().Add(time.Duration(delaySec * float64(time.Second)))

	g.handle = g.wheel.Schedule(func(arg interface{}) {
		gen := arg.(*Generator)
		gen.onWheelFire()
	}, g, "generator.periodic", g.nextTime.Sub(g.clock.Now()))
	g.armed = true
}

// onWheelFire consumes every tick owed up to "now" in one pass, so a
// generator that falls behind (e.g. the process was busy) catches up by
// ticking repeatedly rather than by shortening future intervals — drawn
// delays are honoured independently of wall-clock drift.
func (g *Generator) onWheelFire() {
	g.armed = false

	if g.done {
		return
	}

	now := g.clock.Now()

	for !g.nextTime.After(now) {
		if g.tick(g.arg) < 0 {
			g.done = true
			return
		}

		_, delaySec := g.dist.Next()
		g.nextTime = g.nextTime.Add(time.Duration(delaySec * float64(time.Second)))
	}

	g.handle = g.wheel.Schedule(func(arg interface{}) {
		gen := arg.(*Generator)
		gen.onWheelFire()
	}, g, "generator.periodic", g.nextTime.Sub(now))
	g.armed = true
}

// Stop cancels any outstanding timer and marks the generator done. Safe
// to call on an already-done generator.
func (g *Generator) Stop() {
	if g.armed {
		g.wheel.Cancel(g.handle)
		g.armed = false
	}
	g.done = true
}
