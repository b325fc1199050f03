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

// Package distribution implements the inter-arrival/item-size samplers
// (spec component C2): pure, allocation-free generators over a 48-bit
// linear congruential state seeded from the process's client id, so that
// independently launched instances of the tool draw independent streams.
package distribution

import "fmt"

// Kind tags the sampling law a Distribution applies.
type Kind int

const (
	// None never advances; it marks completion-driven pacing, where the
	// generator fires again only when the previous unit of work finishes.
	None Kind = iota
	Deterministic
	Uniform
	Exponential
	Sequential
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Deterministic:
		return "deterministic"
	case Uniform:
		return "uniform"
	case Exponential:
		return "exponential"
	case Sequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// erand48 constants, matching the POSIX erand48 family this sampler is
// modelled on: a 48-bit linear congruential generator.
const (
	lcgMult = 0x5DEECE66D
	lcgInc  = 0xB
	lcgMask = (1 << 48) - 1
)

// Distribution is a stateful sampler over [Min, Max]. Zero value is not
// usable; construct with New.
type Distribution struct {
	kind Kind
	min  float64
	max  float64

	state uint64 // 48-bit LCG state

	nextID  uint64
	lastVal float64
}

// New returns a Distribution of the given kind over [min, max], with its
// PRNG state seeded from clientID so that distinct client indices (the
// `I/N` CLI argument) produce distinct, reproducible streams.
func New(kind Kind, min, max float64, clientID uint64) (*Distribution, error) {
	if kind != None && max < min {
		return nil, fmt.Errorf("distribution: max %v < min %v", max, min)
	}

	return &Distribution{
		kind:  kind,
		min:   min,
		max:   max,
		state: seed48(clientID),
	}, nil
}

// seed48 derives an initial 48-bit LCG state from a client id. The mixing
// step only needs to scatter low client indices (0, 1, 2, ...) across the
// state space; it need not be cryptographically strong.
func seed48(clientID uint64) uint64 {
	x := clientID*2654435761 + 1
	return (x ^ (x >> 17)) & lcgMask
}

// draw48 advances the LCG and returns a uniform pseudorandom value in
// [0, 1), mirroring erand48's three-int48-word approach collapsed to a
// single 48-bit integer.
func (d *Distribution) draw48() float64 {
	d.state = (d.state*lcgMult + lcgInc) & lcgMask
	return float64(d.state) / float64(uint64(1)<<48)
}

// Kind reports the sampler's law.
func (d *Distribution) Kind() Kind { return d.kind }

// Next advances the sampler, returning the next id (monotonically
// increasing draw counter) and the sampled value. For None it returns the
// previous id/value unchanged and must not be called on a fire-on-
// completion pacing path — callers should special-case None entirely
// (spec.md's Open Question resolution: None is a distinct pacing mode,
// not merely a sentinel distribution that happens to never advance).
func (d *Distribution) Next() (id uint64, val float64) {
	switch d.kind {
	case None:
		return d.nextID, d.lastVal

	case Deterministic:
		d.nextID++
		d.lastVal = d.min + (d.max-d.min)/2

	case Uniform:
		d.nextID++
		u := d.draw48()
		d.lastVal = d.min + (d.max-d.min)*u

	case Exponential:
		d.nextID++
		mean := (d.min + d.max) / 2
		u := d.draw48()
		// ln(1-u) is well-defined for u in [0,1); guard the u==1 edge
		// that a degenerate 48-bit draw could in principle produce.
		if u >= 1 {
			u = 0.9999999999999
		}
		d.lastVal = -mean * ln1m(u)

	case Sequential:
		d.nextID++
		d.lastVal = d.min
		d.min++

	default:
		d.nextID++
		d.lastVal = 0
	}

	return d.nextID, d.lastVal
}

// Last returns the most recently produced (id, value) pair without
// advancing the sampler.
func (d *Distribution) Last() (id uint64, val float64) {
	return d.nextID, d.lastVal
}
