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

// Package stats implements the two statistics collectors (spec component
// C10): connection stats and call stats, both wired as plain subscribers on
// the shared event bus. Neither collector reads timing fields off conn.Conn
// or conn.Call — each stamps its own wall-clock time at the moment it
// observes an event, keyed by the conn/call pointer, and discards the
// bookkeeping entry once the pointer's owning entity is freed.
package stats

import (
	"time"

	"github.com/sabouaram/mcperf/internal/conn"
	"github.com/sabouaram/mcperf/internal/event"
	"github.com/sabouaram/mcperf/internal/protocol"
)

const histogramBins = 100000

// Collector aggregates both connection and call statistics. It must only
// ever be touched from the run loop's goroutine: registration happens once
// at startup, and every counter update happens synchronously inside a bus
// handler. Snapshot() is the one method safe to call from elsewhere, and
// even that is expected to run on the run-loop thread — cross-goroutine
// readers should go through a Store (see Store in snapshot.go).
type Collector struct {
	now func() time.Time

	connCreated    uint64
	connConnecting uint64
	connConnected  uint64
	connFailed     uint64
	connTimeout    uint64
	connDestroyed  uint64

	connectLatencySum   float64
	connectLatencySumSq float64
	lifetimeSum         float64

	failures map[failureClass]uint64

	connStart map[*conn.Conn]time.Time

	callIssued    uint64
	callSendStart uint64
	callSendStop  uint64
	callRecvStart uint64
	callRecvStop  uint64
	callDestroyed uint64

	reqBytes   accumulator
	respBytes  accumulator
	sendDur    accumulator
	firstByte  accumulator
	tagCounts  map[protocol.Tag]uint64
	histogram  [histogramBins]uint64
	callTiming map[*conn.Call]callTiming
}

type callTiming struct {
	issueStart time.Time
	sendStart  time.Time
}

// accumulator tracks sum, sum-of-squares, min and max for a single metric.
type accumulator struct {
	n      uint64
	sum    float64
	sumSq  float64
	min    float64
	max    float64
	inited bool
}

func (a *accumulator) add(v float64) {
	a.n++
	a.sum += v
	a.sumSq += v * v
	if !a.inited {
		a.min, a.max = v, v
		a.inited = true
		return
	}
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
}

// New allocates a Collector and subscribes its handlers on bus. now
// defaults to time.Now when nil.
func New(bus *event.Bus, now func() time.Time) (*Collector, error) {
	if now == nil {
		now = time.Now
	}
	c := &Collector{
		now:        now,
		failures:   make(map[failureClass]uint64),
		connStart:  make(map[*conn.Conn]time.Time),
		tagCounts:  make(map[protocol.Tag]uint64),
		callTiming: make(map[*conn.Call]callTiming),
	}

	regs := []struct {
		t  event.Type
		cb event.Handler
	}{
		{event.ConnCreated, c.onConnCreated},
		{event.ConnConnecting, c.onConnConnecting},
		{event.ConnConnected, c.onConnConnected},
		{event.ConnFailed, c.onConnFailed},
		{event.ConnTimeout, c.onConnTimeout},
		{event.ConnDestroyed, c.onConnDestroyed},
		{event.CallIssueStart, c.onCallIssueStart},
		{event.CallSendStart, c.onCallSendStart},
		{event.CallSendStop, c.onCallSendStop},
		{event.CallRecvStart, c.onCallRecvStart},
		{event.CallRecvStop, c.onCallRecvStop},
		{event.CallDestroyed, c.onCallDestroyed},
	}
	for _, r := range regs {
		if err := bus.Register(r.t, nil, "stats."+r.t.String(), r.cb); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) onConnCreated(_ event.Type, _, carg interface{}) {
	cn, ok := carg.(*conn.Conn)
	if !ok {
		return
	}
	c.connCreated++
	c.connStart[cn] = c.now()
}

func (c *Collector) onConnConnecting(_ event.Type, _, _ interface{}) {
	c.connConnecting++
}

func (c *Collector) onConnConnected(_ event.Type, _, carg interface{}) {
	cn, ok := carg.(*conn.Conn)
	if !ok {
		return
	}
	c.connConnected++
	if start, ok := c.connStart[cn]; ok {
		d := c.now().Sub(start).Seconds()
		c.connectLatencySum += d
		c.connectLatencySumSq += d * d
	}
}

func (c *Collector) onConnFailed(_ event.Type, _, carg interface{}) {
	cn, ok := carg.(*conn.Conn)
	if !ok {
		return
	}
	c.connFailed++
	c.failures[classifyFailure(cn.LastError())]++
}

func (c *Collector) onConnTimeout(_ event.Type, _, _ interface{}) {
	c.connTimeout++
	c.failures[failureClientTimeout]++
}

func (c *Collector) onConnDestroyed(_ event.Type, _, carg interface{}) {
	cn, ok := carg.(*conn.Conn)
	if !ok {
		return
	}
	c.connDestroyed++
	if start, ok := c.connStart[cn]; ok {
		c.lifetimeSum += c.now().Sub(start).Seconds()
		delete(c.connStart, cn)
	}
}

func (c *Collector) onCallIssueStart(_ event.Type, _, carg interface{}) {
	cl, ok := carg.(*conn.Call)
	if !ok {
		return
	}
	c.callIssued++
	c.callTiming[cl] = callTiming{issueStart: c.now()}
}

func (c *Collector) onCallSendStart(_ event.Type, _, carg interface{}) {
	cl, ok := carg.(*conn.Call)
	if !ok {
		return
	}
	c.callSendStart++
	t := c.callTiming[cl]
	t.sendStart = c.now()
	c.callTiming[cl] = t
}

func (c *Collector) onCallSendStop(_ event.Type, _, carg interface{}) {
	cl, ok := carg.(*conn.Call)
	if !ok {
		return
	}
	c.callSendStop++
	c.reqBytes.add(float64(cl.Req.ToSend))
	if t, ok := c.callTiming[cl]; ok && !t.sendStart.IsZero() {
		c.sendDur.add(c.now().Sub(t.sendStart).Seconds())
	}
}

func (c *Collector) onCallRecvStart(_ event.Type, _, carg interface{}) {
	c.callRecvStart++
	cl, ok := carg.(*conn.Call)
	if !ok {
		return
	}
	if t, ok := c.callTiming[cl]; ok && !t.sendStart.IsZero() {
		d := c.now().Sub(t.sendStart).Seconds()
		c.firstByte.add(d)
		c.bucket(d)
	}
}

func (c *Collector) onCallRecvStop(_ event.Type, _, carg interface{}) {
	cl, ok := carg.(*conn.Call)
	if !ok {
		return
	}
	c.callRecvStop++
	c.respBytes.add(float64(cl.RecvBytes))
	c.tagCounts[cl.Resp.Tag]++
}

func (c *Collector) onCallDestroyed(_ event.Type, _, carg interface{}) {
	c.callDestroyed++
	if cl, ok := carg.(*conn.Call); ok {
		delete(c.callTiming, cl)
	}
}

// bucket adds one count to the 1ms-wide latency histogram, clamping
// anything past the last bin into it rather than dropping it.
func (c *Collector) bucket(seconds float64) {
	ms := int(seconds * 1000)
	if ms < 0 {
		ms = 0
	}
	if ms >= histogramBins {
		ms = histogramBins - 1
	}
	c.histogram[ms]++
}
