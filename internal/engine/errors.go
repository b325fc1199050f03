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

package engine

import (
	liberr "github.com/sabouaram/mcperf/errors"
)

// Error codes in the package's reserved 1200-1299 block (errors.MinPkgEngine).
// Every one is fatal, so main exits status 1 after logging it. All but
// ErrPollerWait are initialization failures raised before the run loop
// starts; ErrPollerWait aborts a loop that is already running.
const (
	ErrPollerInit = liberr.CodeError(liberr.MinPkgEngine + iota)
	ErrStatsInit
	ErrInvalidConnRate
	ErrPollerWait
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgEngine, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrPollerInit:
		return "cannot create poller"
	case ErrStatsInit:
		return "cannot register stats collectors"
	case ErrInvalidConnRate:
		return "invalid connection rate distribution"
	case ErrPollerWait:
		return "poller wait failed"
	default:
		return liberr.UnknownMessage
	}
}
