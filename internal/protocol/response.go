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

package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// Tag classifies a parsed response line.
type Tag int

const (
	TagNone Tag = iota
	TagStored
	TagNotStored
	TagExists
	TagNotFound
	TagEnd
	TagValue
	TagDeleted
	TagError
	TagClientError
	TagServerError
	TagNum
)

func (t Tag) String() string {
	switch t {
	case TagStored:
		return "STORED"
	case TagNotStored:
		return "NOT_STORED"
	case TagExists:
		return "EXISTS"
	case TagNotFound:
		return "NOT_FOUND"
	case TagEnd:
		return "END"
	case TagValue:
		return "VALUE"
	case TagDeleted:
		return "DELETED"
	case TagError:
		return "ERROR"
	case TagClientError:
		return "CLIENT_ERROR"
	case TagServerError:
		return "SERVER_ERROR"
	case TagNum:
		return "NUM"
	default:
		return "NONE"
	}
}

// ResponseState is the per-call parse cursor: which phase it is in and,
// once in the body phase, how many bytes of value-plus-terminator remain.
// Zero value is ready to parse a fresh response.
type ResponseState struct {
	Tag Tag

	inBody        bool
	bodyRemaining int
}

// Reset returns s to its zero, ready-for-a-new-response state.
func (s *ResponseState) Reset() { *s = ResponseState{} }

// endTerminatorLen is len("END\r\n"), appended after a VALUE body's own
// trailing CRLF.
const endTerminatorLen = 5

// Parse consumes as much of buf as completes the current response (and,
// if the line phase yields VALUE, as much of the following body as buf
// already contains). It returns the number of bytes consumed from the
// front of buf, whether the response is now fully parsed, and any
// protocol error.
//
// A return of (n, false, nil) means need-more, not an error. A partial body
// is consumed as it arrives, but a response line without its CRLF yet is
// left unconsumed, so n can be less than len(buf) (0 for a bare partial
// line); the caller keeps those bytes and calls Parse again with more data.
func Parse(s *ResponseState, buf []byte) (consumed int, complete bool, err error) {
	for {
		if s.inBody {
			take := s.bodyRemaining
			if take > len(buf)-consumed {
				take = len(buf) - consumed
			}
			consumed += take
			s.bodyRemaining -= take

			if s.bodyRemaining > 0 {
				return consumed, false, nil
			}

			s.inBody = false
			return consumed, true, nil
		}

		rest := buf[consumed:]
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return consumed, false, nil
		}
		if nl == 0 || rest[nl-1] != '\r' {
			return consumed, false, fmt.Errorf("protocol: response line missing CRLF terminator")
		}

		line := rest[:nl-1]
		consumed += nl + 1

		tag, perr := classify(line)
		if perr != nil {
			return consumed, false, perr
		}
		s.Tag = tag

		if tag != TagValue {
			return consumed, true, nil
		}

		vlen, perr := parseValueLen(line)
		if perr != nil {
			return consumed, false, perr
		}

		s.inBody = true
		s.bodyRemaining = vlen + len(crlf) + endTerminatorLen
	}
}

var (
	prefixStored      = []byte("STORED")
	prefixNotStored   = []byte("NOT_STORED")
	prefixExists      = []byte("EXISTS")
	prefixNotFound    = []byte("NOT_FOUND")
	prefixEnd         = []byte("END")
	prefixValue       = []byte("VALUE ")
	prefixDeleted     = []byte("DELETED")
	prefixClientError = []byte("CLIENT_ERROR")
	prefixServerError = []byte("SERVER_ERROR")
	prefixError       = []byte("ERROR")
)

// classify matches line against the known response tags by longest-prefix
// match; a line consisting solely of ASCII digits is the NUM tag returned
// by incr/decr.
func classify(line []byte) (Tag, error) {
	switch {
	case bytes.HasPrefix(line, prefixNotStored):
		return TagNotStored, nil
	case bytes.HasPrefix(line, prefixNotFound):
		return TagNotFound, nil
	case bytes.HasPrefix(line, prefixStored):
		return TagStored, nil
	case bytes.HasPrefix(line, prefixExists):
		return TagExists, nil
	case bytes.HasPrefix(line, prefixEnd):
		return TagEnd, nil
	case bytes.HasPrefix(line, prefixValue):
		return TagValue, nil
	case bytes.HasPrefix(line, prefixDeleted):
		return TagDeleted, nil
	case bytes.HasPrefix(line, prefixClientError):
		return TagClientError, nil
	case bytes.HasPrefix(line, prefixServerError):
		return TagServerError, nil
	case bytes.HasPrefix(line, prefixError):
		return TagError, nil
	case isAllDigits(line):
		return TagNum, nil
	default:
		return TagNone, fmt.Errorf("protocol: unrecognised response line %q", line)
	}
}

func isAllDigits(line []byte) bool {
	if len(line) == 0 {
		return false
	}
	for _, b := range line {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// parseValueLen extracts <bytes> from a "VALUE <key> <flags> <bytes>
// [<cas>]" line.
func parseValueLen(line []byte) (int, error) {
	fields := bytes.Fields(line)
	if len(fields) < 4 {
		return 0, fmt.Errorf("protocol: malformed VALUE line %q", line)
	}

	n, err := strconv.Atoi(string(fields[3]))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("protocol: malformed VALUE length in %q: %w", line, err)
	}

	return n, nil
}
