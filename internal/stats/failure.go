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
	"errors"
	"syscall"
)

// failureClass buckets a connection failure by its root cause, independent
// of which state transition (CONN_FAILED vs CONN_TIMEOUT) reported it.
type failureClass int

const (
	failureClientTimeout failureClass = iota
	failureFDUnavail
	failureFtabFull
	failureAddrUnavail
	failureRefused
	failureReset
	failureSockTimedout
	failureOther
)

func (f failureClass) String() string {
	switch f {
	case failureClientTimeout:
		return "client_timeout"
	case failureFDUnavail:
		return "fd_unavail"
	case failureFtabFull:
		return "ftab_full"
	case failureAddrUnavail:
		return "addr_unavail"
	case failureRefused:
		return "refused"
	case failureReset:
		return "reset"
	case failureSockTimedout:
		return "sock_timedout"
	default:
		return "other"
	}
}

// classifyFailure maps a connection error to the taxonomy named in
// spec.md §4.10: {client_timeout, fd_unavail, ftab_full, addr_unavail,
// refused, reset, sock_timedout, other}. client_timeout is assigned
// directly by onConnTimeout, never reached from here.
func classifyFailure(err error) failureClass {
	if err == nil {
		return failureOther
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return failureOther
	}

	switch errno {
	case syscall.ECONNREFUSED:
		return failureRefused
	case syscall.ECONNRESET, syscall.EPIPE:
		return failureReset
	case syscall.ETIMEDOUT:
		return failureSockTimedout
	case syscall.EMFILE:
		return failureFDUnavail
	case syscall.ENFILE:
		return failureFtabFull
	case syscall.EADDRNOTAVAIL, syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.EADDRINUSE:
		return failureAddrUnavail
	default:
		return failureOther
	}
}
