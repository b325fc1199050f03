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

//go:build linux

package poller

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Epoll is the Linux poller, a thin wrapper over an epoll instance. It
// tracks each registered fd's current interest mask itself so that
// AddWrite/DelWrite can no-op when the fd is already in the requested
// state, as spec.md §4.5 requires.
type Epoll struct {
	fd       int
	interest map[int]uint32
	events   []unix.EpollEvent
}

// New creates a new epoll instance sized to expect roughly hint
// simultaneously registered descriptors (a capacity hint for the event
// buffer, not a hard limit).
func New(hint int) (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}

	if hint <= 0 {
		hint = 64
	}

	return &Epoll{
		fd:       fd,
		interest: make(map[int]uint32, hint),
		events:   make([]unix.EpollEvent, hint),
	}, nil
}

// Close releases the underlying epoll fd.
func (p *Epoll) Close() error {
	return unix.Close(p.fd)
}

// Add enrols fd with both read and write interest, matching the socket
// state machine's connect-time registration (it needs EPOLLOUT to learn
// when a nonblocking connect(2) completes, and EPOLLIN for whatever the
// peer sends first).
func (p *Epoll) Add(fd int) error {
	mask := uint32(unix.EPOLLIN | unix.EPOLLOUT)

	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
		return fmt.Errorf("poller: epoll_ctl add fd=%d: %w", fd, err)
	}

	p.interest[fd] = mask
	return nil
}

// Del removes fd from the poller. Safe to call on an fd that was never
// added or was already removed.
func (p *Epoll) Del(fd int) error {
	if _, ok := p.interest[fd]; !ok {
		return nil
	}

	delete(p.interest, fd)

	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
		return fmt.Errorf("poller: epoll_ctl del fd=%d: %w", fd, err)
	}

	return nil
}

// AddWrite arms EPOLLOUT interest for fd, a no-op if already armed.
func (p *Epoll) AddWrite(fd int) error {
	return p.setWrite(fd, true)
}

// DelWrite disarms EPOLLOUT interest for fd, a no-op if already disarmed.
// The send-drain loop calls this once a connection's send queue empties,
// so a steadily idle connection doesn't keep reporting spurious
// writability.
func (p *Epoll) DelWrite(fd int) error {
	return p.setWrite(fd, false)
}

func (p *Epoll) setWrite(fd int, want bool) error {
	cur, ok := p.interest[fd]
	if !ok {
		return fmt.Errorf("poller: fd=%d not registered", fd)
	}

	has := cur&uint32(unix.EPOLLOUT) != 0
	if has == want {
		return nil
	}

	var mask uint32
	if want {
		mask = cur | uint32(unix.EPOLLOUT)
	} else {
		mask = cur &^ uint32(unix.EPOLLOUT)
	}

	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
		return fmt.Errorf("poller: epoll_ctl mod fd=%d: %w", fd, err)
	}

	p.interest[fd] = mask
	return nil
}

// Wait blocks for up to timeoutMs (a negative value blocks indefinitely,
// which the run loop never does — it always passes the wheel's 1ms
// granularity) and appends every ready descriptor's Event to dst,
// returning the extended slice. A zero return with a bounded timeout is a
// valid quiescent tick.
func (p *Epoll) Wait(dst []Event, timeoutMs int) ([]Event, error) {
	n, err := unix.EpollWait(p.fd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, fmt.Errorf("poller: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := p.events[i]

		var k Kind
		if ev.Events&unix.EPOLLIN != 0 {
			k |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			k |= Writable
		}
		if ev.Events&unix.EPOLLERR != 0 {
			k |= Err
		}
		if ev.Events&unix.EPOLLHUP != 0 {
			k |= Hup
		}

		dst = append(dst, Event{Fd: int(ev.Fd), Kind: k})
	}

	return dst, nil
}
