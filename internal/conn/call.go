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

// Package conn implements the per-connection nonblocking TCP state machine
// and the call lifecycle it drives (spec components C8 and C9).
package conn

import (
	"time"

	"github.com/sabouaram/mcperf/internal/protocol"
)

// Call is one request/response pair, owned by exactly one Conn for its
// entire life. The state machine itself carries no statistics logic —
// sendStop exists only so the watchdog can be re-armed against "opt.timeout
// minus elapsed since this call's send completed"; per-call latency
// accounting lives in the stats package, which times itself against the
// event bus rather than reading fields off Call.
type Call struct {
	ID      uint64
	Req     protocol.Request
	Resp    protocol.ResponseState
	Noreply bool

	// RecvBytes accumulates bytes consumed by protocol.Parse on this
	// call's behalf, across however many buffer chunks its response was
	// split over. Stats reads it at CALL_RECV_STOP; nothing else needs it.
	RecvBytes int

	sendStop time.Time
	started  bool // whether CALL_RECV_START has already fired for this call
}

// reset clears a Call for reuse from its connection's pool.
func (c *Call) reset() {
	c.Req = protocol.Request{}
	c.Resp.Reset()
	c.Noreply = false
	c.RecvBytes = 0
	c.sendStop = time.Time{}
	c.started = false
}
