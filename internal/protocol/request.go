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

// Package protocol implements the memcached ASCII request codec and
// streaming response parser (spec component C7).
package protocol

import (
	"fmt"
)

// Slot indexes the fixed 10-position scatter/gather vector every request
// is built from, regardless of which of the four request shapes is in
// use. Unused slots for a given shape are left nil and are skipped by
// the send-drain loop.
type Slot int

const (
	SlotMethod Slot = iota
	SlotKey
	SlotFlag
	SlotExpiry
	SlotVlen
	SlotCas
	SlotNoreply
	SlotCRLF
	SlotValue
	SlotCRLF2

	numSlots
)

var crlf = []byte("\r\n")

// Request is the 10-slot gather vector for one memcached command plus the
// bookkeeping the send-drain loop needs to issue it across multiple
// partial writes.
type Request struct {
	Slots [numSlots][]byte

	ToSend int // sum of all slot lengths at build time
	Sent   int // bytes written so far, monotonically increasing
}

func (r *Request) set(s Slot, b []byte) {
	r.Slots[s] = b
	r.ToSend += len(b)
}

// MaxPrefixLen bounds the synthesized key prefix, per spec.md §4.7.
const MaxPrefixLen = 16

// SynthesizeKey builds "<prefix><8-hex-lower>" from the low 32 bits of id,
// truncating prefix to MaxPrefixLen bytes. The engine passes a packed
// connection id / call sequence number as id; the size distribution's
// current id is not used for the key.
func SynthesizeKey(prefix string, id uint64) string {
	if len(prefix) > MaxPrefixLen {
		prefix = prefix[:MaxPrefixLen]
	}
	return fmt.Sprintf("%s%08x", prefix, uint32(id))
}

// MaxValueLen is the size of the shared value buffer; requested value
// lengths must lie in [0, MaxValueLen].
const MaxValueLen = 1 << 20

// sharedValue is pre-filled with ASCII '0' and supplies every VALUE slot's
// bytes; no request ever mutates it, so a single shared buffer is safe
// despite being handed out to many in-flight requests at once.
var sharedValue = newZeroFilledBuffer(MaxValueLen)

func newZeroFilledBuffer(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return b
}

// ValueBytes returns a slice of the shared value buffer of length n. The
// returned slice aliases package state and must only be read, never
// retained past the request that used it or mutated.
func ValueBytes(n int) ([]byte, error) {
	if n < 0 || n > MaxValueLen {
		return nil, fmt.Errorf("protocol: value length %d out of [0, %d]", n, MaxValueLen)
	}
	return sharedValue[:n], nil
}

// BuildRetrieval fills a Request for `get`/`gets`. noreply is never valid
// for retrieval requests.
func BuildRetrieval(r *Request, method, key string) {
	*r = Request{}
	r.set(SlotMethod, []byte(method+" "))
	r.set(SlotKey, []byte(key+" "))
	r.set(SlotCRLF, crlf)
}

// BuildDelete fills a Request for `delete`.
func BuildDelete(r *Request, key string, noreply bool) {
	*r = Request{}
	r.set(SlotMethod, []byte("delete "))
	if noreply {
		r.set(SlotKey, []byte(key+" "))
		r.set(SlotNoreply, []byte("noreply"))
	} else {
		r.set(SlotKey, []byte(key))
	}
	r.set(SlotCRLF, crlf)
}

// BuildStorage fills a Request for `set`/`add`/`replace`/`append`/
// `prepend`/`cas`. value must come from ValueBytes (or be nil for a
// zero-length body).
func BuildStorage(r *Request, method, key string, expirySeconds int, value []byte, casUnique uint64, noreply bool) {
	*r = Request{}
	r.set(SlotMethod, []byte(method+" "))
	r.set(SlotKey, []byte(key+" "))
	r.set(SlotFlag, []byte("0 "))
	r.set(SlotExpiry, []byte(fmt.Sprintf("%d ", expirySeconds)))
	r.set(SlotVlen, []byte(fmt.Sprintf("%d ", len(value))))

	if method == "cas" {
		r.set(SlotCas, []byte(fmt.Sprintf("%d ", casUnique)))
	}

	if noreply {
		r.set(SlotNoreply, []byte("noreply"))
	}

	r.set(SlotCRLF, crlf)
	r.set(SlotValue, value)
	r.set(SlotCRLF2, crlf)
}

// BuildArithmetic fills a Request for `incr`/`decr`. The EXPIRY slot is
// repurposed to carry the decimal delta, per spec.md §4.7.
func BuildArithmetic(r *Request, method, key string, delta int64, noreply bool) {
	*r = Request{}
	r.set(SlotMethod, []byte(method+" "))
	r.set(SlotKey, []byte(key+" "))
	if noreply {
		r.set(SlotExpiry, []byte(fmt.Sprintf("%d ", delta)))
		r.set(SlotNoreply, []byte("noreply"))
	} else {
		r.set(SlotExpiry, []byte(fmt.Sprintf("%d", delta)))
	}
	r.set(SlotCRLF, crlf)
}

// Noreply reports whether the last-built request carries a populated
// NOREPLY slot.
func (r *Request) Noreply() bool {
	return len(r.Slots[SlotNoreply]) > 0
}

// Remaining returns the number of unsent bytes.
func (r *Request) Remaining() int {
	return r.ToSend - r.Sent
}

// Done reports whether every byte of the request has been sent.
func (r *Request) Done() bool {
	return r.Sent >= r.ToSend
}

// Advance records n freshly-sent bytes by adding them to Sent; the slots
// themselves are not modified. Vector uses Sent to skip fully-sent slots
// and trim the slot straddling the cursor, so a subsequent partial write
// resumes exactly where the last one left off.
func (r *Request) Advance(n int) {
	r.Sent += n
}

// Vector returns the slots still needing to be written, each trimmed to
// reflect bytes already sent, suitable for handing to a writev-style
// syscall. It allocates a small slice of up to numSlots entries; callers
// on the hot path may instead track Sent/ToSend directly and skip this
// convenience method.
func (r *Request) Vector() [][]byte {
	out := make([][]byte, 0, numSlots)

	skip := r.Sent
	for _, s := range r.Slots {
		if len(s) == 0 {
			continue
		}
		if skip >= len(s) {
			skip -= len(s)
			continue
		}
		out = append(out, s[skip:])
		skip = 0
	}

	return out
}
