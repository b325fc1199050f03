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

// Package config binds the CLI surface named in spec.md §6 (cobra flags,
// optional YAML file and environment overlay via viper) into a single
// validated Config, then projects it into an internal/engine.Config. There
// is exactly one validation pass and no dynamic reload: Config is built
// once in main and never re-read, matching the "no dynamic reconfiguration"
// non-goal carried into the ambient layer by SPEC_FULL.md §4.12.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sabouaram/mcperf/internal/conn"
	"github.com/sabouaram/mcperf/internal/distribution"
	"github.com/sabouaram/mcperf/internal/engine"
)

const (
	maxValueBytes = 1 << 20 // 1 MiB
)

// Config is the raw, unvalidated projection of every flag/env/file value
// the CLI accepts. Fields hold the tokens as the grammar of spec.md §6
// describes them; Validate resolves and range-checks them. The straightforward
// bounds (required-ness, non-negativity, the method whitelist) are expressed
// as validator struct tags rather than hand-rolled ifs; only the token
// grammars that validator has no vocabulary for (I/N client index, rate/size
// distribution syntax) are still parsed by hand below.
type Config struct {
	Address string `validate:"required"`

	Client string // "I/N" token, seeds randomness only (non-goal: no cross-process coordination)

	NumConns int `validate:"gte=0"`
	NumCalls int `validate:"gte=0"`

	ConnRate string
	CallRate string
	Size     string

	Method    string `validate:"required,oneof=set add replace append prepend cas get gets delete incr decr"`
	Expiry    int
	Noreply   bool
	KeyPrefix string `validate:"max=16"`

	Timeout        float64 `validate:"gte=0"`
	Linger         int
	SendBuf        int
	RecvBuf        int
	DisableNodelay bool

	LogLevel string
	LogFile  string
	NoColor  bool
	Progress bool

	MetricsAddr string
	ConfigFile  string

	clientID    uint64
	connRate    distribution.Spec
	callRate    distribution.Spec
	size        distribution.Spec
}

// Default returns a Config carrying the same defaults the CLI flags
// declare, useful for tests and for constructing a Config without cobra.
func Default() Config {
	return Config{
		NumConns: 1,
		NumCalls: 1,
		ConnRate: "d0",
		CallRate: "d0",
		Size:     "d64",
		Method:   "set",
		Timeout:  30,
		LogLevel: "info",
		Progress: true,
	}
}

// Validate range-checks every field and resolves the distribution tokens
// and client-index token, returning the first violation found as an
// errors.Error in the 100-199 block. Call this once before ToEngineConfig.
func (c *Config) Validate() error {
	c.Method = strings.ToLower(strings.TrimSpace(c.Method))

	if err := validateFields(c); err != nil {
		return err
	}

	id, err := parseClientIndex(c.Client)
	if err != nil {
		return ErrInvalidClientIndex.Error(err)
	}
	c.clientID = id

	connRate, err := distribution.ParseRate(c.ConnRate)
	if err != nil {
		return ErrInvalidRate.Error(err)
	}
	c.connRate = connRate

	callRate, err := distribution.ParseRate(c.CallRate)
	if err != nil {
		return ErrInvalidRate.Error(err)
	}
	c.callRate = callRate

	size, err := distribution.ParseSize(c.Size)
	if err != nil {
		return ErrInvalidRate.Error(err)
	}
	if size.R1 < 0 || size.R1 > maxValueBytes || size.R2 < 0 || size.R2 > maxValueBytes {
		return ErrInvalidSize.Error()
	}
	c.size = size

	return nil
}

// validateFields runs the struct-tag checks declared on Config (required,
// gte, max, oneof) and maps the first failing field back to its specific
// errors.CodeError, the way internal/config's reserved 100-199 block expects.
// Mirrors the validator.New().Struct(c) pattern the teacher uses throughout
// its own config types (e.g. httpserver.ServerConfig.Validate); unlike that
// pattern this package's errors.Error has no AddParent, so a failing
// validator.FieldError is threaded through as the CodeError's sole parent
// instead of being accumulated onto one combined error.
func validateFields(c *Config) error {
	v := validator.New()
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return ErrConfigValidation.Error(err)
	}

	fe := err.(validator.ValidationErrors)[0]
	switch fe.StructField() {
	case "Address":
		return ErrMissingAddress.Error()
	case "KeyPrefix":
		return ErrInvalidPrefix.Error()
	case "Method":
		return ErrInvalidMethod.Error()
	case "NumConns":
		return ErrInvalidNumConns.Error()
	case "NumCalls":
		return ErrInvalidNumCalls.Error()
	case "Timeout":
		return ErrInvalidTimeout.Error()
	default:
		return ErrConfigValidation.Error(fe)
	}
}

// parseClientIndex parses the "I/N" token into a seed. An empty token
// yields seed 0. Otherwise the seed is I*1000003 + N, so both I and N feed
// it (per spec.md's non-goal, clients coordinate nothing beyond drawing
// from disjoint random streams); a missing "/N" is taken as N = I+1. The
// token is range-checked (0 <= I < N) so a caller's typo ("3/2") is caught
// at startup rather than silently accepted.
func parseClientIndex(token string) (uint64, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	parts := strings.SplitN(token, "/", 2)
	i, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, &rangeErr{token: token}
	}

	n := i + 1
	if len(parts) == 2 {
		n, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, err
		}
	}
	if i >= n {
		return 0, &rangeErr{token: token}
	}

	return uint64(i)*1000003 + uint64(n), nil
}

type rangeErr struct{ token string }

func (e *rangeErr) Error() string { return "client index out of range: " + e.token }

// ToEngineConfig projects a validated Config into the shape internal/engine
// consumes. Validate must have been called first (and returned nil).
func (c *Config) ToEngineConfig() engine.Config {
	var linger *int
	if c.Linger > 0 {
		l := c.Linger
		linger = &l
	}

	return engine.Config{
		Address:  c.Address,
		ClientID: c.clientID,
		NumConns: c.NumConns,
		NumCalls: c.NumCalls,
		ConnRate: c.connRate,
		CallRate: c.callRate,
		Size:     c.size,
		Method:   c.Method,
		Expiry:   c.Expiry,
		Noreply:  c.Noreply,
		KeyPrefix: c.KeyPrefix,
		ConnOptions: conn.Options{
			Timeout: time.Duration(c.Timeout * float64(time.Second)),
			Linger:  linger,
			SendBuf: c.SendBuf,
			RecvBuf: c.RecvBuf,
			NoDelay: !c.DisableNodelay,
		},
	}
}
