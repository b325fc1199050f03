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

package stats

import (
	"github.com/sabouaram/mcperf/atomic"
	"github.com/sabouaram/mcperf/internal/protocol"
)

// MetricSummary is the immutable, already-reduced form of an accumulator.
type MetricSummary struct {
	Count   uint64
	Sum     float64
	SumSq   float64
	Min     float64
	Max     float64
}

func (a accumulator) summarize() MetricSummary {
	return MetricSummary{Count: a.n, Sum: a.sum, SumSq: a.sumSq, Min: a.min, Max: a.max}
}

// Snapshot is an immutable copy of every counter a Collector holds, taken
// at one instant. It is the only thing that may cross a goroutine boundary
// (e.g. to a metrics HTTP handler); the live Collector never does.
type Snapshot struct {
	ConnCreated    uint64
	ConnConnecting uint64
	ConnConnected  uint64
	ConnFailed     uint64
	ConnTimeout    uint64
	ConnDestroyed  uint64

	ConnectLatency MetricSummary
	LifetimeSum    float64

	Failures map[string]uint64

	CallIssued    uint64
	CallSendStart uint64
	CallSendStop  uint64
	CallRecvStart uint64
	CallRecvStop  uint64
	CallDestroyed uint64

	RequestBytes   MetricSummary
	ResponseBytes  MetricSummary
	SendDuration   MetricSummary
	FirstByteDelay MetricSummary

	TagCounts map[string]uint64

	// Histogram is a copy of the 100000-bin, 1ms-wide latency histogram.
	Histogram [histogramBins]uint64
}

// Snapshot copies every counter into an independent value. Intended to be
// called from the run-loop thread; see Store for handing the result to
// another goroutine safely.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		ConnCreated:    c.connCreated,
		ConnConnecting: c.connConnecting,
		ConnConnected:  c.connConnected,
		ConnFailed:     c.connFailed,
		ConnTimeout:    c.connTimeout,
		ConnDestroyed:  c.connDestroyed,
		ConnectLatency: MetricSummary{
			Count: c.connConnected,
			Sum:   c.connectLatencySum,
			SumSq: c.connectLatencySumSq,
		},
		LifetimeSum:   c.lifetimeSum,
		Failures:      make(map[string]uint64, len(c.failures)),
		CallIssued:    c.callIssued,
		CallSendStart: c.callSendStart,
		CallSendStop:  c.callSendStop,
		CallRecvStart: c.callRecvStart,
		CallRecvStop:  c.callRecvStop,
		CallDestroyed: c.callDestroyed,
		RequestBytes:  c.reqBytes.summarize(),
		ResponseBytes: c.respBytes.summarize(),
		SendDuration:  c.sendDur.summarize(),
		FirstByteDelay: c.firstByte.summarize(),
		TagCounts:     make(map[string]uint64, len(c.tagCounts)),
	}
	for k, v := range c.failures {
		s.Failures[k.String()] = v
	}
	for k, v := range c.tagCounts {
		s.TagCounts[tagName(k)] = v
	}
	s.Histogram = c.histogram
	return s
}

func tagName(t protocol.Tag) string {
	return t.String()
}

// Store publishes Snapshot values across the one sanctioned goroutine
// boundary in this codebase: the run loop calls Publish periodically, and
// the (optional) metrics HTTP handler calls Load from its own goroutine.
// Neither side touches Collector directly.
type Store struct {
	v atomic.Value[Snapshot]
}

// NewStore returns a Store pre-populated with an empty Snapshot so Load
// never has to special-case a cold start.
func NewStore() *Store {
	s := &Store{v: atomic.NewValue[Snapshot]()}
	s.Publish(Snapshot{})
	return s
}

// Publish stores snap as the current value visible to Load.
func (s *Store) Publish(snap Snapshot) {
	s.v.Store(snap)
}

// Load returns the most recently published Snapshot.
func (s *Store) Load() Snapshot {
	return s.v.Load()
}
