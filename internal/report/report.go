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

// Package report renders the final textual dump spec.md §1 names ("rates,
// latency distribution, response-type counts, errors, CPU usage, I/O
// volume") and names as a boundary rather than specifying its formatting.
// It is still implemented in full here, the way the teacher's console
// package renders its own coloured sections, since a complete repository
// has to produce output a human can read.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/sabouaram/mcperf/internal/stats"
)

// Rusage carries process resource usage sampled once at the end of a run.
// See rusage_linux.go / rusage_other.go for how it is populated.
type Rusage struct {
	UserTime   time.Duration
	SystemTime time.Duration

	IOReadBytes  uint64
	IOWriteBytes uint64

	// Supported is false on platforms lacking /proc (non-Linux): the
	// fields above stay zeroed and Render logs that rather than printing
	// misleading zeros silently.
	Supported bool
}

type section struct {
	title string
	fn    func(w io.Writer, snap stats.Snapshot, ru Rusage)
}

// Render writes the full report to w. colour enables fatih/color section
// headers; callers decide this from mattn/go-isatty against the
// destination, never from Render itself.
func Render(w io.Writer, snap stats.Snapshot, ru Rusage, elapsed time.Duration, colour bool) {
	header := plainHeader
	if colour {
		header = colourHeader
	}

	sections := []section{
		{"Connections", renderConnections},
		{"Calls", renderCalls},
		{"Latency", renderLatency},
		{"Response types", renderTagCounts},
		{"Failures", renderFailures},
		{"Resource usage", renderRusage},
	}

	header(w, fmt.Sprintf("mcperf report (%s elapsed)", elapsed.Round(time.Millisecond)))
	for _, s := range sections {
		header(w, s.title)
		s.fn(w, snap, ru)
	}
}

func plainHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "== %s ==\n", title)
}

var headerColor = color.New(color.Bold, color.FgCyan)

func colourHeader(w io.Writer, title string) {
	_, _ = headerColor.Fprintf(w, "== %s ==\n", title)
}

func renderConnections(w io.Writer, s stats.Snapshot, _ Rusage) {
	fmt.Fprintf(w, "created=%d connecting=%d connected=%d failed=%d timeout=%d destroyed=%d\n",
		s.ConnCreated, s.ConnConnecting, s.ConnConnected, s.ConnFailed, s.ConnTimeout, s.ConnDestroyed)
	if s.ConnectLatency.Count > 0 {
		mean := s.ConnectLatency.Sum / float64(s.ConnectLatency.Count)
		fmt.Fprintf(w, "connect latency: mean=%.3fms over %d samples\n", mean*1000, s.ConnectLatency.Count)
	}
	if s.ConnDestroyed > 0 {
		fmt.Fprintf(w, "mean connection lifetime: %.3fms\n", (s.LifetimeSum/float64(s.ConnDestroyed))*1000)
	}
}

func renderCalls(w io.Writer, s stats.Snapshot, _ Rusage) {
	fmt.Fprintf(w, "issued=%d send_start=%d send_stop=%d recv_start=%d recv_stop=%d destroyed=%d\n",
		s.CallIssued, s.CallSendStart, s.CallSendStop, s.CallRecvStart, s.CallRecvStop, s.CallDestroyed)
	if s.RequestBytes.Count > 0 {
		fmt.Fprintf(w, "request bytes: total=%.0f mean=%.1f\n", s.RequestBytes.Sum, s.RequestBytes.Sum/float64(s.RequestBytes.Count))
	}
	if s.ResponseBytes.Count > 0 {
		fmt.Fprintf(w, "response bytes: total=%.0f mean=%.1f\n", s.ResponseBytes.Sum, s.ResponseBytes.Sum/float64(s.ResponseBytes.Count))
	}
	if s.SendDuration.Count > 0 {
		fmt.Fprintf(w, "send duration: mean=%.3fms\n", (s.SendDuration.Sum/float64(s.SendDuration.Count))*1000)
	}
}

func renderLatency(w io.Writer, s stats.Snapshot, _ Rusage) {
	if s.FirstByteDelay.Count == 0 {
		fmt.Fprintln(w, "no responses received")
		return
	}

	mean := s.FirstByteDelay.Sum / float64(s.FirstByteDelay.Count)
	fmt.Fprintf(w, "first-byte delay: mean=%.3fms min=%.3fms max=%.3fms over %d samples\n",
		mean*1000, s.FirstByteDelay.Min*1000, s.FirstByteDelay.Max*1000, s.FirstByteDelay.Count)

	for _, p := range []float64{0.50, 0.90, 0.95, 0.99} {
		if ms, ok := percentile(s.Histogram, p); ok {
			fmt.Fprintf(w, "p%.0f=%dms  ", p*100, ms)
		}
	}
	fmt.Fprintln(w)
}

// percentile walks the fixed-width millisecond histogram to find the bin
// holding the p-th fraction of samples. Returns false if the histogram is
// empty.
func percentile(hist [100000]uint64, p float64) (int, bool) {
	var total uint64
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0, false
	}

	target := uint64(float64(total) * p)
	var cum uint64
	for ms, c := range hist {
		cum += c
		if cum >= target {
			return ms, true
		}
	}
	return len(hist) - 1, true
}

func renderTagCounts(w io.Writer, s stats.Snapshot, _ Rusage) {
	if len(s.TagCounts) == 0 {
		fmt.Fprintln(w, "none")
		return
	}

	names := make([]string, 0, len(s.TagCounts))
	for k := range s.TagCounts {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "%s=%d\n", n, s.TagCounts[n])
	}
}

func renderFailures(w io.Writer, s stats.Snapshot, _ Rusage) {
	if len(s.Failures) == 0 {
		fmt.Fprintln(w, "none")
		return
	}

	names := make([]string, 0, len(s.Failures))
	for k := range s.Failures {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "%s=%d\n", n, s.Failures[n])
	}
}

func renderRusage(w io.Writer, _ stats.Snapshot, ru Rusage) {
	if !ru.Supported {
		fmt.Fprintln(w, "not available on this platform")
		return
	}
	fmt.Fprintf(w, "cpu user=%s sys=%s, io read=%d bytes write=%d bytes\n",
		ru.UserTime.Round(time.Millisecond), ru.SystemTime.Round(time.Millisecond),
		ru.IOReadBytes, ru.IOWriteBytes)
}
