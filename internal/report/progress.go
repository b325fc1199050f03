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

package report

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress drives a live connections-destroyed bar while a run is in
// flight. It only ever reads a stats.Store snapshot (never touches
// run-loop state), the same safety boundary the metrics exporter uses, so
// it is the second sanctioned goroutine besides the run loop itself.
type Progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// NewProgress starts a bar tracking progress toward total connections
// destroyed (the run loop's own completion signal). Passing total <= 0
// disables the bar and every method becomes a no-op, for --progress=false
// or a non-TTY destination.
func NewProgress(w io.Writer, total int) *Progress {
	if total <= 0 {
		return &Progress{}
	}

	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(48))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("connections")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d"), decor.Percentage(decor.WCSyncSpace)),
	)

	return &Progress{p: p, bar: bar}
}

// SetCurrent reports how many connections have been destroyed so far.
func (pr *Progress) SetCurrent(n int) {
	if pr.bar == nil {
		return
	}
	pr.bar.SetCurrent(int64(n))
}

// Done waits for the bar's final render. Callers should SetCurrent(total)
// before calling Done so the bar reaches 100% rather than stalling short.
func (pr *Progress) Done() {
	if pr.bar == nil {
		return
	}
	pr.p.Wait()
}

// Poll runs a ticking loop that pushes SetCurrent from poll() until done is
// closed, meant to be run on its own goroutine by the caller.
func (pr *Progress) Poll(interval time.Duration, poll func() int, done <-chan struct{}) {
	if pr.bar == nil {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			pr.SetCurrent(poll())
		case <-done:
			return
		}
	}
}
