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

import "github.com/sabouaram/mcperf/internal/pool"

// callQueue is a small FIFO of pool handles backing a connection's send
// and recv queues.
type callQueue struct {
	items []pool.Handle
}

func (q *callQueue) push(h pool.Handle) {
	q.items = append(q.items, h)
}

func (q *callQueue) peek() (pool.Handle, bool) {
	if len(q.items) == 0 {
		return pool.Handle{}, false
	}
	return q.items[0], true
}

func (q *callQueue) pop() (pool.Handle, bool) {
	if len(q.items) == 0 {
		return pool.Handle{}, false
	}
	h := q.items[0]
	q.items = q.items[1:]
	return h, true
}

func (q *callQueue) len() int {
	return len(q.items)
}
