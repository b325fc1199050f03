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

// Package poller implements the level-triggered readiness multiplexer
// (spec component C5) over connected sockets. The Linux implementation
// (poller_linux.go) wraps epoll directly via golang.org/x/sys/unix; the
// run loop is the only caller, and it is the only goroutine that ever
// blocks, in Wait.
package poller

// Kind flags which readiness a caller is interested in, or which kind an
// Event reports.
type Kind uint8

const (
	Readable Kind = 1 << iota
	Writable
	Err
	Hup
)

func (k Kind) Has(o Kind) bool { return k&o != 0 }

// Event describes one ready file descriptor returned from Wait.
type Event struct {
	Fd   int
	Kind Kind
}
