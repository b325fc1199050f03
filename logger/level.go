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

// Package logger provides a small structured-logging façade over logrus,
// matched to the needs of a single-process batch tool: level filtering,
// attached fields, and a stderr/file sink. It intentionally does not carry
// the syslog, gorm, or hashicorp hclog bridges found in larger frameworks.
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a log entry, ordered from most to least severe.
type Level uint8

const (
	// FatalLevel terminates the process after the entry is written.
	FatalLevel Level = iota
	// ErrorLevel reports a per-connection or per-tick failure.
	ErrorLevel
	// WarnLevel reports a recoverable condition worth surfacing.
	WarnLevel
	// InfoLevel reports high-level run milestones (start, report dump).
	InfoLevel
	// DebugLevel reports per-event-bus-signal detail.
	DebugLevel
)

// String renders the level the way it appears in the log line prefix.
func (l Level) String() string {
	switch l {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return "info"
	}
}

// ParseLevel converts a CLI/config string into a Level, defaulting to InfoLevel
// for anything unrecognized rather than failing the whole configuration load.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fatal", "crit", "critical":
		return FatalLevel
	case "error", "err":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "debug":
		return DebugLevel
	default:
		return InfoLevel
	}
}

// logrusLevel maps our Level to the logrus equivalent used by the backing logger.
func (l Level) logrusLevel() logrus.Level {
	switch l {
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
