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

package config

import (
	liberr "github.com/sabouaram/mcperf/errors"
)

// Error codes in the package's reserved 100-199 block (errors.MinPkgConfig).
// Every one of these is a fatal initialization error per spec.md §7: the
// CLI cannot produce a runnable engine.Config, so main exits status 1
// after logging it.
const (
	ErrMissingAddress = liberr.CodeError(liberr.MinPkgConfig + iota)
	ErrInvalidClientIndex
	ErrInvalidPrefix
	ErrInvalidMethod
	ErrInvalidSize
	ErrInvalidRate
	ErrInvalidNumConns
	ErrInvalidNumCalls
	ErrInvalidTimeout
	ErrConfigFileUnreadable
	ErrConfigValidation
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgConfig, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrMissingAddress:
		return "missing target server address"
	case ErrInvalidClientIndex:
		return "invalid client index/count token"
	case ErrInvalidPrefix:
		return "key prefix exceeds 16 bytes"
	case ErrInvalidMethod:
		return "unrecognized method token"
	case ErrInvalidSize:
		return "item size must be within [0, 1MiB]"
	case ErrInvalidRate:
		return "invalid rate or size distribution token"
	case ErrInvalidNumConns:
		return "num_conns must be >= 0"
	case ErrInvalidNumCalls:
		return "num_calls must be >= 0"
	case ErrInvalidTimeout:
		return "timeout must be >= 0"
	case ErrConfigFileUnreadable:
		return "configuration file could not be read"
	case ErrConfigValidation:
		return "configuration failed struct validation"
	default:
		return liberr.UnknownMessage
	}
}
