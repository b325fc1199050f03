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

package logger

import "github.com/sirupsen/logrus"

// Fields is a set of structured key/value pairs attached to a log entry,
// e.g. {"conn_id": 42, "call_id": 7}.
type Fields map[string]interface{}

// Clone returns a shallow copy so callers can extend it without mutating
// the receiver shared by other goroutines.
func (f Fields) Clone() Fields {
	n := make(Fields, len(f))

	for k, v := range f {
		n[k] = v
	}

	return n
}

// merge returns a new Fields containing f overlaid with extra.
func (f Fields) merge(extra Fields) Fields {
	n := f.Clone()

	for k, v := range extra {
		n[k] = v
	}

	return n
}

// toLogrus converts Fields into the map type logrus.Entry.WithFields expects.
func (f Fields) toLogrus() logrus.Fields {
	return logrus.Fields(f)
}
