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

package conn

import (
	"fmt"
	"time"

	"github.com/sabouaram/mcperf/internal/event"
	"github.com/sabouaram/mcperf/internal/pool"
	"github.com/sabouaram/mcperf/internal/protocol"
	"github.com/sabouaram/mcperf/internal/timer"
)

// State names the position in the connection's state diagram.
type State int

const (
	StateFresh State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Poller is the subset of poller.Epoll a Conn needs; narrowed to an
// interface so the state machine can be exercised with a fake in tests.
type Poller interface {
	Add(fd int) error
	Del(fd int) error
	AddWrite(fd int) error
	DelWrite(fd int) error
}

// recvBufSize is the fixed receive-buffer window, per spec.md §3.
const recvBufSize = 8 * 1024

// defaultMaxOutstanding bounds how many Call records a single connection
// may have live at once, giving the per-tick "entity allocation failure"
// error path (spec.md §7) somewhere to actually trigger instead of the
// arena growing without limit.
const defaultMaxOutstanding = 1 << 16

// Conn is one TCP stream's nonblocking state machine plus the call queues
// it drives. Not safe for concurrent use.
type Conn struct {
	ID    uint64
	fd    int
	state State

	bus    *event.Bus
	wheel  *timer.Wheel
	poller Poller
	opt    Options
	now    func() time.Time

	// OnConnected is invoked once the connection completes (synchronously
	// on success, or on first writable readiness after an in-progress
	// connect). It is how the engine starts this connection's call
	// generator — event.Bus's per-type 4-subscriber cap makes a global
	// subscription unworkable for a per-connection callback, so this is a
	// direct hook instead.
	OnConnected func(*Conn)
	// OnDestroyed is invoked once the connection is fully torn down (fd
	// closed, both queues drained), so the engine can release this Conn
	// back to the process-wide connection pool and update completion
	// counters.
	OnDestroyed func(*Conn)
	// OnCallCompleted fires once per call that reaches its natural end
	// (noreply send-complete, or full response parse) — never for calls
	// drained unfulfilled on connection teardown. It drives this
	// connection's own completion-paced call generator directly, since
	// CALL_DESTROYED is one event type shared by every connection in the
	// run and the bus has no way to filter a broadcast by owner.
	OnCallCompleted func(*Conn, *Call)

	calls *pool.Pool[Call]
	sendQ callQueue
	recvQ callQueue

	maxOutstanding int

	buf    [recvBufSize]byte
	bufLen int

	watchdog      timer.Handle
	watchdogArmed bool

	connectStart time.Time

	nCallCreated      uint64
	nCallCreateFailed uint64
	nCallCompleted    uint64

	connecting bool
	connected  bool
	eof        bool
	recvActive bool
	recvReady  bool
	sendActive bool
	sendReady  bool

	lastErr error
}

// New returns a fresh connection in state Fresh.
func New(id uint64, bus *event.Bus, wheel *timer.Wheel, pl Poller, opt Options, now func() time.Time) *Conn {
	return &Conn{
		ID:             id,
		fd:             -1,
		state:          StateFresh,
		bus:            bus,
		wheel:          wheel,
		poller:         pl,
		opt:            opt,
		now:            now,
		calls:          pool.New[Call](4),
		maxOutstanding: defaultMaxOutstanding,
	}
}

// FD returns the connection's socket descriptor, or -1 before Connect.
func (c *Conn) FD() int { return c.fd }

// State reports the connection's current position in the state diagram.
func (c *Conn) State() State { return c.state }

// LastError returns the error that caused this connection to fail, if
// any.
func (c *Conn) LastError() error { return c.lastErr }

// Counters returns the connection's per-connection call counters.
func (c *Conn) Counters() (created, createFailed, completed uint64) {
	return c.nCallCreated, c.nCallCreateFailed, c.nCallCompleted
}

// Outstanding reports how many calls this connection still owns (sendq
// plus recvq), letting a caller whose call generator has finished know
// whether it is safe to Shutdown yet.
func (c *Conn) Outstanding() int {
	return c.sendQ.len() + c.recvQ.len()
}

// Shutdown tears a connection down the same way a protocol error would,
// minus the error: used once a connection's owning call generator is done
// and has no outstanding calls left, so the engine can close idle
// connections instead of leaving them open for the rest of the run.
func (c *Conn) Shutdown() {
	c.destroy(nil)
}

// Connect creates a nonblocking socket against address and begins the
// connect sequence.
func (c *Conn) Connect(address string) error {
	c.bus.Signal(event.ConnCreated, c)

	fd, inProgress, err := dial(address, c.opt)
	if err != nil {
		c.lastErr = err
		c.fail(err)
		return err
	}
	c.fd = fd

	if err := c.poller.Add(fd); err != nil {
		closeFD(fd)
		c.lastErr = err
		c.fail(err)
		return err
	}

	c.connectStart = c.now()
	c.state = StateConnecting
	c.bus.Signal(event.ConnConnecting, c)

	if inProgress {
		c.connecting = true
		if c.opt.Timeout > 0 {
			c.armWatchdog(c.opt.Timeout, "connect")
		}
		return nil
	}

	c.onConnected()
	return nil
}

// onConnected transitions Connecting/Fresh → Connected.
func (c *Conn) onConnected() {
	c.connecting = false
	c.connected = true
	c.state = StateConnected
	c.cancelWatchdog()

	c.sendReady = true
	c.recvReady = true
	c.sendActive = true
	c.recvActive = true

	c.bus.Signal(event.ConnConnected, c)

	if c.OnConnected != nil {
		c.OnConnected(c)
	}

	c.sendDrain()
}

// OnWritable handles EPOLLOUT readiness: while connecting, it means the
// kernel has resolved the connect(2) attempt; while connected, it drives
// the send-drain loop.
func (c *Conn) OnWritable() {
	if c.state == StateDestroyed || c.state == StateClosing {
		return
	}

	if c.connecting {
		if serr := socketError(c.fd); serr != nil {
			c.fail(serr)
			return
		}
		c.onConnected()
		return
	}

	c.sendReady = true
	c.sendDrain()
}

// OnReadable handles EPOLLIN/EPOLLHUP readiness by running the recv-drain
// loop.
func (c *Conn) OnReadable() {
	if c.state != StateConnected {
		return
	}

	c.recvReady = true
	c.recvDrain()
}

// OnEpollErr handles EPOLLERR readiness.
func (c *Conn) OnEpollErr() {
	if c.state == StateDestroyed || c.state == StateClosing {
		return
	}
	c.fail(fmt.Errorf("conn: socket error reported by poller"))
}

// IssueCall allocates a Call from this connection's pool, lets build
// populate its request, and enqueues it for sending. It returns false
// without enqueuing when the connection has hit its per-connection
// outstanding-call cap — the per-tick allocation-failure path the
// generator driving this connection must treat as terminal for itself.
func (c *Conn) IssueCall(noreply bool, build func(*protocol.Request)) bool {
	if c.maxOutstanding > 0 && c.calls.InUse() >= c.maxOutstanding {
		c.nCallCreateFailed++
		return false
	}

	h, call := c.calls.Get()
	call.ID = c.nCallCreated + 1
	call.Noreply = noreply
	build(&call.Req)

	c.nCallCreated++

	c.bus.Signal(event.CallIssueStart, call)

	c.sendQ.push(h)
	if err := c.poller.AddWrite(c.fd); err == nil {
		c.sendActive = true
	}

	if c.state == StateConnected {
		c.sendDrain()
	}

	return true
}

// sendDrain issues queued calls' gather vectors until EAGAIN or the send
// queue empties, per spec.md §4.8's level-triggered write policy.
func (c *Conn) sendDrain() {
	for c.sendReady && c.sendQ.len() > 0 {
		h, _ := c.sendQ.peek()
		call, ok := c.calls.Deref(h)
		if !ok {
			c.sendQ.pop()
			continue
		}

		if call.Req.Sent == 0 {
			c.bus.Signal(event.CallSendStart, call)
		}

		vec := call.Req.Vector()
		if len(vec) == 0 {
			c.completeSend(h, call)
			continue
		}

		n, err := writevCompat(c.fd, vec)
		if err != nil {
			if err == errWouldBlock {
				c.sendReady = false
				break
			}
			c.fail(err)
			return
		}
		if n == 0 {
			c.sendReady = false
			break
		}

		call.Req.Advance(n)
		if call.Req.Done() {
			c.completeSend(h, call)
		}
	}

	if c.sendQ.len() == 0 {
		c.sendActive = false
		_ = c.poller.DelWrite(c.fd)
	}
}

func (c *Conn) completeSend(h pool.Handle, call *Call) {
	c.sendQ.pop()

	call.sendStop = c.now()
	c.bus.Signal(event.CallSendStop, call)

	if call.Noreply {
		c.bus.Signal(event.CallDestroyed, call)
		c.calls.Put(h)
		c.nCallCompleted++
		if c.OnCallCompleted != nil {
			c.OnCallCompleted(c, call)
		}
		return
	}

	c.recvQ.push(h)
	if c.recvQ.len() == 1 {
		c.armResponseWatchdog(call)
	}
}

// recvDrain reads available bytes and feeds them through the codec's
// parse loop for each call at the head of the recv queue in turn,
// compacting the receive buffer after each read.
func (c *Conn) recvDrain() {
	for c.recvReady {
		n, err := readFD(c.fd, c.buf[c.bufLen:])
		if err != nil {
			if err == errWouldBlock {
				c.recvReady = false
				break
			}
			c.fail(err)
			return
		}

		if n == 0 {
			if c.recvQ.len() > 0 || c.sendQ.len() > 0 {
				c.fail(fmt.Errorf("conn: unexpected eof with calls outstanding"))
			} else {
				c.eof = true
				c.destroy(nil)
			}
			return
		}

		c.bufLen += n

		offset := 0
		for c.recvQ.len() > 0 {
			h, _ := c.recvQ.peek()
			call, ok := c.calls.Deref(h)
			if !ok {
				c.recvQ.pop()
				continue
			}

			if !call.started {
				call.started = true
				c.bus.Signal(event.CallRecvStart, call)
			}

			consumed, complete, perr := protocol.Parse(&call.Resp, c.buf[offset:c.bufLen])
			offset += consumed
			call.RecvBytes += consumed
			if perr != nil {
				c.fail(perr)
				return
			}
			if !complete {
				break
			}

			c.recvQ.pop()
			c.bus.Signal(event.CallRecvStop, call)
			c.bus.Signal(event.CallDestroyed, call)
			c.calls.Put(h)
			c.nCallCompleted++
			if c.OnCallCompleted != nil {
				c.OnCallCompleted(c, call)
			}

			c.rearmWatchdogForNewHead()
		}

		if offset > 0 {
			copy(c.buf[:], c.buf[offset:c.bufLen])
			c.bufLen -= offset
		}

		if c.recvQ.len() == 0 && c.bufLen > 0 {
			c.fail(fmt.Errorf("conn: response bytes received with no call awaiting them"))
			return
		}
	}

	if c.recvQ.len() == 0 {
		c.recvActive = false
	}
}

func (c *Conn) armWatchdog(d time.Duration, label string) {
	c.cancelWatchdog()
	c.watchdog = c.wheel.Schedule(func(arg interface{}) {
		cc := arg.(*Conn)
		cc.onWatchdogFire()
	}, c, fmt.Sprintf("conn#%d.%s", c.ID, label), d)
	c.watchdogArmed = true
}

// armResponseWatchdog bounds the response latency of the oldest
// outstanding call: remaining budget is opt.timeout minus time already
// elapsed since that call's send completed.
func (c *Conn) armResponseWatchdog(head *Call) {
	if c.opt.Timeout <= 0 {
		return
	}

	remaining := c.opt.Timeout - c.now().Sub(head.sendStop)
	if remaining < 0 {
		remaining = 0
	}

	c.armWatchdog(remaining, "response")
}

func (c *Conn) rearmWatchdogForNewHead() {
	c.cancelWatchdog()

	if h, ok := c.recvQ.peek(); ok {
		if call, ok := c.calls.Deref(h); ok {
			c.armResponseWatchdog(call)
		}
	}
}

func (c *Conn) cancelWatchdog() {
	if c.watchdogArmed {
		c.wheel.Cancel(c.watchdog)
		c.watchdogArmed = false
	}
}

func (c *Conn) onWatchdogFire() {
	c.watchdogArmed = false

	if c.state == StateDestroyed || c.state == StateClosing {
		return
	}

	c.lastErr = fmt.Errorf("conn: watchdog expired")
	c.bus.Signal(event.ConnTimeout, c)
	c.destroy(c.lastErr)
}

// fail records cause, emits CONN_FAILED, and tears the connection down.
func (c *Conn) fail(cause error) {
	if c.state == StateDestroyed || c.state == StateClosing {
		return
	}

	c.lastErr = cause
	c.bus.Signal(event.ConnFailed, c)
	c.destroy(cause)
}

// destroy drains both queues to the freelist, closes the socket, emits
// CONN_DESTROYED, and releases this connection to its owner via
// OnDestroyed.
func (c *Conn) destroy(cause error) {
	if c.state == StateDestroyed {
		return
	}

	c.state = StateClosing
	c.cancelWatchdog()

	for {
		h, ok := c.sendQ.pop()
		if !ok {
			break
		}
		c.drainUnfulfilled(h)
	}
	for {
		h, ok := c.recvQ.pop()
		if !ok {
			break
		}
		c.drainUnfulfilled(h)
	}

	if c.fd >= 0 {
		_ = c.poller.Del(c.fd)
		closeFD(c.fd)
		c.fd = -1
	}

	c.state = StateDestroyed
	c.bus.Signal(event.ConnDestroyed, c)

	if c.OnDestroyed != nil {
		c.OnDestroyed(c)
	}
}

func (c *Conn) drainUnfulfilled(h pool.Handle) {
	if call, ok := c.calls.Deref(h); ok {
		c.bus.Signal(event.CallDestroyed, call)
	}
	c.calls.Put(h)
}
