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

package distribution

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is the parsed form of a `[d|u|e|s]R1[,R2]` CLI token: the shape
// shared by every rate and size flag the tool accepts.
type Spec struct {
	Kind Kind
	R1   float64
	R2   float64
}

// ParseRate parses a rate token. An unprefixed or `d`-prefixed token is
// deterministic and names a rate in events/second, which BuildRate converts to
// a mean inter-arrival interval of 1/R1; a literal rate of 0 maps to None
// (completion-driven pacing), per spec.md §6.
func ParseRate(token string) (Spec, error) {
	s, err := parseToken(token)
	if err != nil {
		return Spec{}, err
	}

	if s.Kind == Deterministic && s.R1 == 0 {
		s.Kind = None
	}

	return s, nil
}

// ParseSize parses a size token using the same grammar as ParseRate, for
// flags expressing an item-size distribution rather than a rate.
func ParseSize(token string) (Spec, error) {
	return parseToken(token)
}

func parseToken(token string) (Spec, error) {
	if token == "" {
		return Spec{}, fmt.Errorf("distribution: empty token")
	}

	kind := Deterministic
	rest := token

	switch token[0] {
	case 'd', 'D':
		rest = token[1:]
	case 'u', 'U':
		kind = Uniform
		rest = token[1:]
	case 'e', 'E':
		kind = Exponential
		rest = token[1:]
	case 's', 'S':
		kind = Sequential
		rest = token[1:]
	}

	parts := strings.SplitN(rest, ",", 2)

	r1, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Spec{}, fmt.Errorf("distribution: invalid token %q: %w", token, err)
	}

	r2 := r1
	if len(parts) == 2 {
		r2, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return Spec{}, fmt.Errorf("distribution: invalid token %q: %w", token, err)
		}
	}

	return Spec{Kind: kind, R1: r1, R2: r2}, nil
}

// BuildRate constructs the Distribution a rate Spec describes: for
// Deterministic/Uniform/Exponential kinds R1/R2 are a rate (or rate range)
// in events/second and are converted to a mean interval of 1/R before
// building the sampler, since Distribution.Next for those kinds samples a
// delay, not a rate. Sequential and None pass R1/R2 through unconverted.
func BuildRate(s Spec, clientID uint64) (*Distribution, error) {
	min, max := s.R1, s.R2

	switch s.Kind {
	case Deterministic, Uniform, Exponential:
		min, max = invert(s.R1), invert(s.R2)
		if min > max {
			min, max = max, min
		}
	}

	return New(s.Kind, min, max, clientID)
}

// BuildSize constructs the Distribution a size Spec describes, with no
// rate-to-interval conversion.
func BuildSize(s Spec, clientID uint64) (*Distribution, error) {
	return New(s.Kind, s.R1, s.R2, clientID)
}

func invert(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return 1 / rate
}
