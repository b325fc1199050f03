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

// Package event implements the synchronous lifecycle event bus (spec
// component C3): a small static dispatch table indexed by event type, with
// ordered, de-duplicated, non-unregisterable subscriber lists.
package event

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Type enumerates every lifecycle event the engine can publish. Order within
// the family (Conn* then Call*) matches spec.md §4.10's collector wiring.
type Type int

const (
	ConnCreated Type = iota
	ConnConnecting
	ConnConnected
	ConnFailed
	ConnTimeout
	ConnDestroyed
	CallIssueStart
	CallSendStart
	CallSendStop
	CallRecvStart
	CallRecvStop
	CallDestroyed

	numTypes
)

// String renders the event type the way it would appear in a debug log line.
func (t Type) String() string {
	switch t {
	case ConnCreated:
		return "CONN_CREATED"
	case ConnConnecting:
		return "CONN_CONNECTING"
	case ConnConnected:
		return "CONN_CONNECTED"
	case ConnFailed:
		return "CONN_FAILED"
	case ConnTimeout:
		return "CONN_TIMEOUT"
	case ConnDestroyed:
		return "CONN_DESTROYED"
	case CallIssueStart:
		return "CALL_ISSUE_START"
	case CallSendStart:
		return "CALL_SEND_START"
	case CallSendStop:
		return "CALL_SEND_STOP"
	case CallRecvStart:
		return "CALL_RECV_START"
	case CallRecvStop:
		return "CALL_RECV_STOP"
	case CallDestroyed:
		return "CALL_DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// Handler is invoked synchronously on signal. rarg is the value the
// subscriber registered with; carg is whatever signal was called with
// (typically the *conn.Conn or *conn.Call involved).
type Handler func(t Type, rarg interface{}, carg interface{})

// maxSubscribers is the per-event-type registration cap from spec.md §4.3:
// "registrations beyond a fixed per-type cap (4) are fatal."
const maxSubscribers = 4

type registration struct {
	cb   Handler
	rarg interface{}
	loc  string
}

// Bus is the process-wide (single instance per run) synchronous publisher.
// It is not safe for concurrent use — the engine is single-threaded by
// construction (spec.md §5) and the bus is only ever touched from the run
// loop's goroutine.
type Bus struct {
	subs [numTypes][maxSubscribers]registration
	// occupied tracks, per event type, which of the maxSubscribers slots are
	// filled so Register can find the next free slot in O(1) rather than
	// scanning a dynamically-sized slice.
	occupied [numTypes]*bitset.BitSet
}

// New returns an empty Bus.
func New() *Bus {
	b := &Bus{}
	for i := range b.occupied {
		b.occupied[i] = bitset.New(maxSubscribers)
	}
	return b
}

// Register appends cb for events of type t unless an identical (callback
// pointer identity via a wrapping closure, rarg) pair is already present —
// in practice callers register once per generator/collector at startup, so
// de-duplication is keyed on rarg identity plus registration-site loc.
// loc should be a short "package.Func" string for diagnostics.
func (b *Bus) Register(t Type, rarg interface{}, loc string, cb Handler) error {
	if t < 0 || t >= numTypes {
		return fmt.Errorf("event: register: invalid type %d", t)
	}

	occ := b.occupied[t]

	for i := uint(0); i < maxSubscribers; i++ {
		if !occ.Test(i) {
			continue
		}

		if b.subs[t][i].loc == loc && b.subs[t][i].rarg == rarg {
			// Duplicate (callback, argument) pair: spec.md §4.3 says
			// Register "appends unless duplicate".
			return nil
		}
	}

	slot, ok := firstClear(occ, maxSubscribers)
	if !ok {
		return fmt.Errorf("event: register: %s exceeds %d subscriber cap for %s", loc, maxSubscribers, t)
	}

	b.subs[t][slot] = registration{cb: cb, rarg: rarg, loc: loc}
	occ.Set(slot)

	return nil
}

// Signal delivers carg to every subscriber of t, in registration order,
// synchronously. Signal returns only after every subscriber has executed.
func (b *Bus) Signal(t Type, carg interface{}) {
	if t < 0 || t >= numTypes {
		return
	}

	occ := b.occupied[t]

	for i := uint(0); i < maxSubscribers; i++ {
		if !occ.Test(i) {
			continue
		}

		r := b.subs[t][i]
		r.cb(t, r.rarg, carg)
	}
}

// firstClear returns the index of the first clear bit below n, or false if
// every bit is set.
func firstClear(bs *bitset.BitSet, n uint) (uint, bool) {
	for i := uint(0); i < n; i++ {
		if !bs.Test(i) {
			return i, true
		}
	}

	return 0, false
}
