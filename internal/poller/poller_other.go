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

//go:build !linux

package poller

import "fmt"

// Epoll is unavailable outside Linux; the tool's nonblocking connection
// state machine is written directly against epoll semantics (level
// triggering, EPOLLOUT-drives-connect-completion) and has no portable
// equivalent in this codebase.
type Epoll struct{}

func New(hint int) (*Epoll, error) {
	return nil, fmt.Errorf("poller: epoll is only available on linux")
}

func (p *Epoll) Close() error                 { return nil }
func (p *Epoll) Add(fd int) error             { return fmt.Errorf("poller: unsupported platform") }
func (p *Epoll) Del(fd int) error             { return fmt.Errorf("poller: unsupported platform") }
func (p *Epoll) AddWrite(fd int) error        { return fmt.Errorf("poller: unsupported platform") }
func (p *Epoll) DelWrite(fd int) error        { return fmt.Errorf("poller: unsupported platform") }
func (p *Epoll) Wait(dst []Event, timeoutMs int) ([]Event, error) {
	return dst, fmt.Errorf("poller: unsupported platform")
}
