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

// Package pool implements the entity store (spec component C4): a generic
// arena-and-freelist allocator handing out generational-index Handles
// rather than the teacher corpus's raw pointers, so that a stale reference
// to a recycled slot is detectable instead of silently aliasing the wrong
// entity. Call records are drawn from a Pool owned by their connection
// rather than a single process-wide one. Connection records are not
// pooled: each one is allocated directly when it is created.
package pool

// Handle addresses one slot in a Pool. The zero Handle never addresses a
// live entry.
type Handle struct {
	idx uint32
	gen uint32
}

// Valid reports whether h could possibly address a live entry.
func (h Handle) Valid() bool { return h.gen != 0 }

type slot[T any] struct {
	val   T
	gen   uint32
	inUse bool
}

// Pool is a freelist-backed arena of T. Entries are never truly freed
// system-side during a run: Put resets the slot to T's zero value and
// returns it to the freelist head, so a subsequent Get reuses the
// backing memory. The pool grows its backing slice on demand and never
// shrinks. Not safe for concurrent use.
type Pool[T any] struct {
	slots []slot[T]
	free  []uint32
	gen   uint32
}

// New returns an empty Pool, optionally pre-sizing its backing slice to
// capacity (a hint, not a limit — the pool still grows past it on demand).
func New[T any](capacity int) *Pool[T] {
	p := &Pool[T]{}
	if capacity > 0 {
		p.slots = make([]slot[T], 0, capacity)
	}
	return p
}

// Get returns a Handle to a recycled or freshly allocated T, reset to its
// zero value, and a pointer to it for in-place initialization.
func (p *Pool[T]) Get() (Handle, *T) {
	p.gen++
	if p.gen == 0 {
		p.gen = 1
	}

	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]

		s := &p.slots[idx]
		var zero T
		s.val = zero
		s.gen = p.gen
		s.inUse = true

		return Handle{idx: idx, gen: p.gen}, &s.val
	}

	p.slots = append(p.slots, slot[T]{gen: p.gen, inUse: true})
	idx := uint32(len(p.slots) - 1)

	return Handle{idx: idx, gen: p.gen}, &p.slots[idx].val
}

// Deref resolves h to its live value, or returns (nil, false) if h is
// stale (already released, or never valid).
func (p *Pool[T]) Deref(h Handle) (*T, bool) {
	if !h.Valid() || int(h.idx) >= len(p.slots) {
		return nil, false
	}

	s := &p.slots[h.idx]
	if !s.inUse || s.gen != h.gen {
		return nil, false
	}

	return &s.val, true
}

// Put releases h back to the freelist. Put on a stale or already-released
// handle is a safe no-op, matching the wheel/event packages' idempotent
// release semantics.
func (p *Pool[T]) Put(h Handle) {
	if !h.Valid() || int(h.idx) >= len(p.slots) {
		return
	}

	s := &p.slots[h.idx]
	if !s.inUse || s.gen != h.gen {
		return
	}

	var zero T
	s.val = zero
	s.inUse = false
	p.free = append(p.free, h.idx)
}

// InUse returns the number of currently live (not-yet-released) entries.
func (p *Pool[T]) InUse() int {
	return len(p.slots) - len(p.free)
}

// Cap returns the size of the pool's backing arena, the high-water mark of
// simultaneously allocated entries this run has ever needed.
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}
