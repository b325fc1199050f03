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

package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promExporter implements prometheus.Collector by reading whatever Snapshot
// a Store last published. It never touches the live stats.Collector, so it
// is safe to scrape from a goroutine other than the run loop's.
type promExporter struct {
	store *Store

	callsTotal       *prometheus.Desc
	connsTotal       *prometheus.Desc
	socketErrsTotal  *prometheus.Desc
	responseLatency  *prometheus.Desc
}

func newPromExporter(store *Store) *promExporter {
	return &promExporter{
		store: store,
		callsTotal: prometheus.NewDesc(
			"mcperf_calls_total", "Calls observed by lifecycle stage.",
			[]string{"type"}, nil),
		connsTotal: prometheus.NewDesc(
			"mcperf_connections_total", "Connections observed by state.",
			[]string{"state"}, nil),
		socketErrsTotal: prometheus.NewDesc(
			"mcperf_socket_errors_total", "Connection failures by class.",
			[]string{"class"}, nil),
		responseLatency: prometheus.NewDesc(
			"mcperf_response_latency_ms", "Send-to-first-response-byte latency histogram, in milliseconds.",
			nil, nil),
	}
}

func (e *promExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.callsTotal
	ch <- e.connsTotal
	ch <- e.socketErrsTotal
	ch <- e.responseLatency
}

func (e *promExporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.store.Load()

	ch <- prometheus.MustNewConstMetric(e.callsTotal, prometheus.CounterValue, float64(snap.CallIssued), "issued")
	ch <- prometheus.MustNewConstMetric(e.callsTotal, prometheus.CounterValue, float64(snap.CallSendStop), "sent")
	ch <- prometheus.MustNewConstMetric(e.callsTotal, prometheus.CounterValue, float64(snap.CallRecvStop), "completed")
	ch <- prometheus.MustNewConstMetric(e.callsTotal, prometheus.CounterValue, float64(snap.CallDestroyed), "destroyed")

	ch <- prometheus.MustNewConstMetric(e.connsTotal, prometheus.CounterValue, float64(snap.ConnCreated), "created")
	ch <- prometheus.MustNewConstMetric(e.connsTotal, prometheus.CounterValue, float64(snap.ConnConnected), "connected")
	ch <- prometheus.MustNewConstMetric(e.connsTotal, prometheus.CounterValue, float64(snap.ConnFailed), "failed")
	ch <- prometheus.MustNewConstMetric(e.connsTotal, prometheus.CounterValue, float64(snap.ConnTimeout), "timeout")
	ch <- prometheus.MustNewConstMetric(e.connsTotal, prometheus.CounterValue, float64(snap.ConnDestroyed), "destroyed")

	for class, n := range snap.Failures {
		ch <- prometheus.MustNewConstMetric(e.socketErrsTotal, prometheus.CounterValue, float64(n), class)
	}

	buckets := make(map[float64]uint64, 16)
	var cumulative uint64
	for ms := 0; ms < histogramBins; ms++ {
		cumulative += snap.Histogram[ms]
		switch ms + 1 {
		case 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, histogramBins:
			buckets[float64(ms+1)] = cumulative
		}
	}
	ch <- prometheus.MustNewConstHistogram(e.responseLatency, cumulative, snap.FirstByteDelay.Sum*1000, buckets)
}

// ExporterHandler wraps store in a Prometheus registry and returns the
// resulting /metrics HTTP handler. Opt-in: main only mounts this when
// --metrics-addr is set.
func ExporterHandler(store *Store) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newPromExporter(store))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
