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

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
)

// Logger is the structured-logging interface threaded through the engine.
// Every call site attaches the fields relevant to the event being logged
// rather than formatting them into the message string.
type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(f Fields) Logger

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Fatalf logs at FatalLevel and calls os.Exit(1). Reserved for the
	// initialization failures spec.md §7 classifies as fatal.
	Fatalf(format string, args ...interface{})
}

type entry struct {
	l *logrus.Logger
	f Fields
}

// New builds a Logger writing to w at the given minimum level. Logging
// before this is wired (flag parsing, config file load) uses the Logger
// returned by Bootstrap instead.
func New(w io.Writer, lvl Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl.logrusLevel())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return &entry{l: l, f: Fields{}}
}

// Bootstrap returns a logrus-backed Logger writing to os.Stderr at logrus's
// default level, for use before a configured sink (file/level) is
// available, e.g. while cobra is still parsing flags. It also sets
// jwalterweatherman's stdout and log thresholds to info; entries logged
// through the returned Logger do not pass through jwalterweatherman.
func Bootstrap() Logger {
	jww.SetStdoutThreshold(jww.LevelInfo)
	jww.SetLogThreshold(jww.LevelInfo)

	l := logrus.New()
	l.SetOutput(os.Stderr)

	return &entry{l: l, f: Fields{}}
}

func (e *entry) WithField(key string, value interface{}) Logger {
	return &entry{l: e.l, f: e.f.merge(Fields{key: value})}
}

func (e *entry) WithFields(f Fields) Logger {
	return &entry{l: e.l, f: e.f.merge(f)}
}

func (e *entry) le() *logrus.Entry {
	return e.l.WithFields(e.f.toLogrus())
}

func (e *entry) Debugf(format string, args ...interface{}) { e.le().Debugf(format, args...) }
func (e *entry) Infof(format string, args ...interface{})  { e.le().Infof(format, args...) }
func (e *entry) Warnf(format string, args ...interface{})  { e.le().Warnf(format, args...) }
func (e *entry) Errorf(format string, args ...interface{}) { e.le().Errorf(format, args...) }
func (e *entry) Fatalf(format string, args ...interface{}) { e.le().Fatalf(format, args...) }
