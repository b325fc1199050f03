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

// Package engine implements the run loop (spec component C11): it wires
// together the timer wheel, poller, event bus and stats collector built by
// the other internal packages, drives the connection generator, and owns
// one call generator per live connection.
package engine

import (
	"net/http"
	"time"

	errpool "github.com/sabouaram/mcperf/errors/pool"
	"github.com/sabouaram/mcperf/internal/conn"
	"github.com/sabouaram/mcperf/internal/distribution"
	"github.com/sabouaram/mcperf/internal/event"
	"github.com/sabouaram/mcperf/internal/generator"
	"github.com/sabouaram/mcperf/internal/poller"
	"github.com/sabouaram/mcperf/internal/protocol"
	"github.com/sabouaram/mcperf/internal/stats"
	"github.com/sabouaram/mcperf/internal/timer"
)

// Config is the fully-resolved, validated input the engine needs to run
// one load-generation pass. internal/config builds this from the CLI.
type Config struct {
	Address string

	ClientID uint64 // seeds every distribution this run creates

	NumConns int
	NumCalls int

	ConnRate distribution.Spec
	CallRate distribution.Spec
	Size     distribution.Spec

	Method    string
	Expiry    int
	Noreply   bool
	KeyPrefix string

	ConnOptions conn.Options

	// PollTimeout is the poller-wait timeout, nominally the wheel's
	// resolution (1ms) per spec.md §4.11.
	PollTimeout time.Duration
}

// clockAdapter satisfies generator.Clock by delegating to an injectable
// now function, so tests can drive generators without real time passing.
type clockAdapter struct{ now func() time.Time }

func (c clockAdapter) Now() time.Time { return c.now() }

// Engine owns the run loop's singletons: one bus, one wheel, one poller,
// one stats collector. No locking — everything below runs on the single
// goroutine that calls Run.
type Engine struct {
	cfg Config
	now func() time.Time

	bus    *event.Bus
	wheel  *timer.Wheel
	pl     *poller.Epoll
	stats  *stats.Collector
	store  *stats.Store
	errs   errpool.Pool
	clock  clockAdapter

	connGen *generator.Generator

	nextConnID        uint64
	nConnIssued       uint64
	nConnCreateFailed uint64
	nConnDestroyed    uint64

	fds      map[int]*conn.Conn
	eventBuf []poller.Event
}

// New constructs an Engine. now defaults to time.Now when nil. The stats
// Store is created here rather than in Run so a caller can mount the
// metrics HTTP handler (MetricsHandler) before the run loop starts.
func New(cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, now: now, clock: clockAdapter{now}, fds: make(map[int]*conn.Conn), store: stats.NewStore(), errs: errpool.New()}
}

// Errors returns a combined error aggregating every distinct dial, socket
// and watchdog failure observed this run (nil if none occurred). It
// complements the report's failure counts with the actual underlying
// errors, useful when diagnosing why a run's failure rate is non-zero.
func (e *Engine) Errors() error {
	return e.errs.Error()
}

// Snapshot returns the latest published statistics snapshot. Safe to call
// concurrently with Run (it only reads an atomically-published value).
func (e *Engine) Snapshot() stats.Snapshot {
	return e.store.Load()
}

// MetricsHandler returns an http.Handler serving the same counters as the
// textual report in Prometheus exposition format, reading only from the
// Store -- never from run-loop state -- so it is safe to mount and serve
// from a goroutine other than the one calling Run.
func (e *Engine) MetricsHandler() http.Handler {
	return stats.ExporterHandler(e.store)
}

// Run drives the run loop to completion: opens the poller, builds the
// connection generator, and repeats timer-tick / poller-wait / dispatch
// until every planned connection has been created and destroyed. It
// returns the final statistics snapshot.
func (e *Engine) Run() (stats.Snapshot, error) {
	if e.cfg.PollTimeout <= 0 {
		e.cfg.PollTimeout = timer.Resolution
	}

	e.bus = event.New()
	e.wheel = timer.New(e.now())

	pl, err := poller.New(e.cfg.NumConns + 1)
	if err != nil {
		return stats.Snapshot{}, ErrPollerInit.Error(err)
	}
	e.pl = pl
	defer e.pl.Close()

	st, err := stats.New(e.bus, e.now)
	if err != nil {
		return stats.Snapshot{}, ErrStatsInit.Error(err)
	}
	e.stats = st

	connDist, err := distribution.BuildRate(e.cfg.ConnRate, e.cfg.ClientID)
	if err != nil {
		return stats.Snapshot{}, ErrInvalidConnRate.Error(err)
	}

	if e.cfg.ConnRate.Kind == distribution.None {
		e.connGen = generator.NewCompletionDriven(e.bus, e.clock, e.connTick, nil, event.ConnDestroyed, "engine.conngen")
	} else {
		e.connGen = generator.NewPeriodic(e.wheel, e.clock, connDist, e.connTick, nil)
	}
	e.connGen.Start()

	for !e.allConnectionsDone() {
		e.wheel.Tick(e.now())

		events, err := e.pl.Wait(e.eventBuf[:0], int(e.cfg.PollTimeout/time.Millisecond))
		if err != nil {
			return stats.Snapshot{}, ErrPollerWait.Error(err)
		}
		e.eventBuf = events
		for _, ev := range events {
			e.dispatch(ev)
		}

		e.wheel.Tick(e.now())
		e.store.Publish(e.stats.Snapshot())
	}

	final := e.stats.Snapshot()
	e.store.Publish(final)
	return final, nil
}

// allConnectionsDone reports the run-loop's exit condition. Every issued
// connection attempt — whether it ultimately connects or fails outright —
// ends in exactly one ConnDestroyed/OnDestroyed firing in this design (a
// synchronous dial failure self-destroys immediately), so completion is
// simply "every planned attempt has been issued and has been destroyed".
func (e *Engine) allConnectionsDone() bool {
	return e.nConnDestroyed == e.nConnIssued && e.nConnIssued == uint64(e.cfg.NumConns)
}

func (e *Engine) dispatch(ev poller.Event) {
	cn, ok := e.fds[ev.Fd]
	if !ok {
		return
	}
	if ev.Kind.Has(poller.Err) || ev.Kind.Has(poller.Hup) {
		cn.OnEpollErr()
		return
	}
	if ev.Kind.Has(poller.Readable) {
		cn.OnReadable()
	}
	if ev.Kind.Has(poller.Writable) {
		cn.OnWritable()
	}
}

// connTick is the connection generator's tick callback: it allocates one
// new connection per call until NumConns is reached.
func (e *Engine) connTick(_ interface{}) int {
	if e.nConnIssued >= uint64(e.cfg.NumConns) {
		return -1
	}
	e.nConnIssued++

	id := e.nextConnID
	e.nextConnID++

	cn := conn.New(id, e.bus, e.wheel, e.pl, e.cfg.ConnOptions, e.now)
	cn.OnConnected = e.startCallGenerator
	cn.OnDestroyed = e.releaseConn

	if err := cn.Connect(e.cfg.Address); err != nil {
		e.nConnCreateFailed++
		e.errs.Add(err)
	} else {
		e.fds[cn.FD()] = cn
	}

	if e.nConnIssued >= uint64(e.cfg.NumConns) {
		return -1
	}
	return 0
}

func (e *Engine) releaseConn(cn *conn.Conn) {
	delete(e.fds, cn.FD())
	e.nConnDestroyed++
	if err := cn.LastError(); err != nil {
		e.errs.Add(err)
	}
}

// startCallGenerator builds this connection's own call-pacing generator,
// seeded by a per-connection derivation of the run's client id so sibling
// connections don't draw identical sequences.
func (e *Engine) startCallGenerator(cn *conn.Conn) {
	connSeed := e.cfg.ClientID*31 + cn.ID + 1
	sizeSeed := connSeed + 1

	callDist, err := distribution.BuildRate(e.cfg.CallRate, connSeed)
	if err != nil {
		return
	}
	sizeDist, err := distribution.BuildSize(e.cfg.Size, sizeSeed)
	if err != nil {
		return
	}

	cc := &connCalls{e: e, conn: cn, sizeDist: sizeDist}

	var gen *generator.Generator
	if e.cfg.CallRate.Kind == distribution.None {
		gen = generator.NewManual(e.clock, cc.tick, nil)
	} else {
		gen = generator.NewPeriodic(e.wheel, e.clock, callDist, cc.tick, nil)
	}
	cc.gen = gen

	// OnCallCompleted is the one hook available to react to a call
	// finishing without relying on the bus's un-filterable CALL_DESTROYED
	// broadcast (see its doc comment in internal/conn). It serves two
	// purposes here: driving completion-paced call generators forward,
	// and noticing once a finished generator's last call has drained so
	// the connection can be closed instead of left open idle.
	cn.OnCallCompleted = func(c *conn.Conn, _ *conn.Call) {
		if e.cfg.CallRate.Kind == distribution.None {
			gen.Fire()
		}
		if gen.Done() && c.Outstanding() == 0 {
			c.Shutdown()
		}
	}

	gen.Start()
	if gen.Done() && cn.Outstanding() == 0 {
		cn.Shutdown()
	}
}

// connCalls closes over one connection's call-issuing state: how many
// calls it has issued so far, and the distribution driving VALUE sizes
// for storage methods.
type connCalls struct {
	e        *Engine
	conn     *conn.Conn
	sizeDist *distribution.Distribution
	gen      *generator.Generator
	issued   int
}

func (cc *connCalls) tick(_ interface{}) int {
	if cc.issued >= cc.e.cfg.NumCalls {
		return -1
	}
	cc.issued++

	// SynthesizeKey only keeps the low 32 bits of its id argument, so pack
	// connection id and per-connection call sequence into that width
	// rather than shifting connection id into bits that would be
	// silently discarded.
	id := (cc.conn.ID%(1<<16))<<16 | uint64(cc.issued%(1<<16))
	key := protocol.SynthesizeKey(cc.e.cfg.KeyPrefix, id)
	method := cc.e.cfg.Method
	noreply := cc.e.cfg.Noreply

	cc.conn.IssueCall(noreply, func(r *protocol.Request) {
		switch method {
		case "get", "gets":
			protocol.BuildRetrieval(r, method, key)
		case "delete":
			protocol.BuildDelete(r, key, noreply)
		case "incr", "decr":
			protocol.BuildArithmetic(r, method, key, 1, noreply)
		default: // set, add, replace, append, prepend, cas
			_, size := cc.sizeDist.Next()
			n := int(size)
			if n < 0 {
				n = 0
			}
			value, err := protocol.ValueBytes(n)
			if err != nil {
				value, _ = protocol.ValueBytes(0)
			}
			protocol.BuildStorage(r, method, key, cc.e.cfg.Expiry, value, cc.conn.ID, noreply)
		}
	})

	if cc.issued >= cc.e.cfg.NumCalls {
		return -1
	}
	return 0
}
