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

// Package timer implements the hashed timer wheel (spec component C1): a
// fixed 4096-spoke, 1ms-per-spoke wheel giving O(1) amortised schedule and
// cancel for the millisecond-precision timeouts the run loop depends on
// (connect/response watchdogs, generator pacing).
package timer

import (
	"time"
)

// Spokes is the number of slots in the wheel; Resolution is the wall-clock
// duration a single spoke represents. Together they bound one rotation to
// ≈4.096s, per spec.md §4.1.
const (
	Spokes     = 4096
	Resolution = time.Millisecond
)

// Callback is invoked when a scheduled timer fires. arg is whatever opaque
// value was passed to Schedule.
type Callback func(arg interface{})

const noLink = -1

// node is one scheduled timer, stored in a flat arena indexed by Handle.idx.
// gen guards against a stale Handle addressing a slot that has since been
// reused (the generational-index arena pattern used throughout this
// module's pool-backed types).
type node struct {
	cb   Callback
	arg  interface{}
	name string

	// delta is this node's round count relative to its predecessor in the
	// same spoke's list (or, for the head, relative to the current
	// rotation). A delta of 0 means "fires on the wheel's next pass over
	// this spoke".
	delta int32

	spoke      int32
	prev, next int32 // indices into Wheel.nodes, or noLink
	gen        uint32
	inUse      bool
}

// Handle addresses a single scheduled timer. The zero Handle never
// addresses a live timer.
type Handle struct {
	idx uint32
	gen uint32
}

// Valid reports whether h could possibly address a timer (it does not by
// itself guarantee the timer hasn't since fired or been cancelled).
func (h Handle) Valid() bool { return h.gen != 0 }

// Wheel is the hashed timer wheel. It is not safe for concurrent use; the
// run loop is single-threaded by construction and the wheel is only ever
// touched from its goroutine.
type Wheel struct {
	heads [Spokes]int32 // index of list head per spoke, or noLink

	nodes []node
	free  []uint32
	gen   uint32

	widx     int
	nextTick time.Time
	now      time.Time
}

// New returns an empty Wheel whose clock starts at now.
func New(now time.Time) *Wheel {
	w := &Wheel{
		now:      now,
		nextTick: now.Add(Resolution),
	}
	for i := range w.heads {
		w.heads[i] = noLink
	}
	return w
}

func (w *Wheel) alloc() uint32 {
	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		return idx
	}

	w.nodes = append(w.nodes, node{})
	return uint32(len(w.nodes) - 1)
}

// Schedule arms a single-shot timer that invokes cb(arg) no earlier than
// delay from now. name is a short debug label (e.g. "conn#42.watchdog").
//
// Per spec.md §4.1, if the wheel is already behind its own tick schedule
// (now is past nextTick), that lag is folded into delay so a caller never
// benefits from the wheel's own slippage.
func (w *Wheel) Schedule(cb Callback, arg interface{}, name string, delay time.Duration) Handle {
	if lag := w.now.Sub(w.nextTick); lag > 0 {
		delay += lag
	}

	ticks := int64((delay + Resolution/2) / Resolution)
	if ticks < 1 {
		ticks = 1
	}

	spoke := (w.widx + int(ticks%Spokes)) % Spokes
	delta := int32(ticks / Spokes)

	idx := w.alloc()
	w.gen++
	if w.gen == 0 {
		w.gen = 1
	}

	n := &w.nodes[idx]
	*n = node{
		cb:    cb,
		arg:   arg,
		name:  name,
		spoke: int32(spoke),
		gen:   w.gen,
		inUse: true,
		prev:  noLink,
		next:  noLink,
	}

	w.insert(int32(idx), delta)

	return Handle{idx: idx, gen: w.gen}
}

// insert walks the spoke's list, consuming delta from each predecessor
// until idx can be inserted with a non-negative residual delta; the
// immediate successor (if any) has its own delta reduced by the amount
// idx consumed, so it remains correctly positioned relative to idx.
func (w *Wheel) insert(idx int32, delta int32) {
	n := &w.nodes[idx]
	spoke := n.spoke

	cur := w.heads[spoke]
	var prev int32 = noLink

	remaining := delta
	for cur != noLink {
		c := &w.nodes[cur]
		if c.delta > remaining {
			break
		}
		remaining -= c.delta
		prev = cur
		cur = c.next
	}

	n.delta = remaining
	n.prev = prev
	n.next = cur

	if cur != noLink {
		w.nodes[cur].delta -= remaining
		w.nodes[cur].prev = idx
	}

	if prev == noLink {
		w.heads[spoke] = idx
	} else {
		w.nodes[prev].next = idx
	}
}

// Cancel disarms h. The successor in the same spoke (if any) absorbs the
// cancelled timer's delta so relative firing order is preserved. Cancel on
// an already-fired or already-cancelled handle is a safe no-op.
func (w *Wheel) Cancel(h Handle) {
	if !w.live(h) {
		return
	}

	idx := int32(h.idx)
	n := &w.nodes[idx]

	if n.next != noLink {
		w.nodes[n.next].delta += n.delta
		w.nodes[n.next].prev = n.prev
	}

	if n.prev == noLink {
		w.heads[n.spoke] = n.next
	} else {
		w.nodes[n.prev].next = n.next
	}

	w.release(idx)
}

func (w *Wheel) live(h Handle) bool {
	return h.Valid() && int(h.idx) < len(w.nodes) && w.nodes[h.idx].inUse && w.nodes[h.idx].gen == h.gen
}

func (w *Wheel) release(idx int32) {
	n := &w.nodes[idx]
	n.inUse = false
	n.cb = nil
	n.arg = nil
	w.free = append(w.free, uint32(idx))
}

// Tick advances the wheel to now, firing every timer whose resting spoke
// has rotated into view. Callbacks run synchronously, in the order their
// timers are threaded through each visited spoke's list.
func (w *Wheel) Tick(now time.Time) {
	w.now = now

	for !now.Before(w.nextTick) {
		w.fireSpoke(w.widx)
		w.widx = (w.widx + 1) % Spokes
		w.nextTick = w.nextTick.Add(Resolution)
	}
}

func (w *Wheel) fireSpoke(spoke int) {
	for {
		head := w.heads[spoke]
		if head == noLink || w.nodes[head].delta != 0 {
			break
		}

		n := w.nodes[head]
		w.heads[spoke] = n.next
		if n.next != noLink {
			w.nodes[n.next].prev = noLink
		}
		w.release(head)

		if n.cb != nil {
			n.cb(n.arg)
		}
	}

	if head := w.heads[spoke]; head != noLink {
		w.nodes[head].delta--
	}
}

// Pending returns the total number of armed timers across every spoke, the
// quantity the "timer-wheel total never decreases without an explicit fire
// or cancel" invariant is stated against.
func (w *Wheel) Pending() int {
	n := 0
	for _, head := range w.heads {
		for cur := head; cur != noLink; cur = w.nodes[cur].next {
			n++
		}
	}
	return n
}
