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

// Command mcperf is a single-process load generator for memcached-protocol
// servers. See internal/engine for the run loop and internal/config for
// the flag surface.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/sabouaram/mcperf/internal/config"
	"github.com/sabouaram/mcperf/internal/engine"
	"github.com/sabouaram/mcperf/internal/report"
	"github.com/sabouaram/mcperf/logger"
)

func main() {
	boot := logger.Bootstrap()

	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		boot.Fatalf("%s", err.Error())
	}
}

func run(cfg config.Config) error {
	sink, closer, err := logger.OpenSink(cfg.LogFile)
	if err != nil {
		return ErrLogSinkOpen.Error(err)
	}
	defer closer.Close()

	log := logger.New(sink, logger.ParseLevel(cfg.LogLevel))
	log.Infof("starting run against %s: %d connections, %d calls each", cfg.Address, cfg.NumConns, cfg.NumCalls)

	eng := engine.New(cfg.ToEngineConfig(), nil)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", eng.MetricsHandler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics listener stopped: %s", ErrMetricsListen.Error(err).Error())
			}
		}()
		log.Infof("serving metrics on %s", cfg.MetricsAddr)
	}

	showProgress := cfg.Progress && report.IsTTY(os.Stderr)
	var prog *report.Progress
	var pollDone chan struct{}
	if showProgress {
		prog = report.NewProgress(os.Stderr, cfg.NumConns)
		pollDone = make(chan struct{})
		go prog.Poll(100*time.Millisecond, func() int {
			return int(eng.Snapshot().ConnDestroyed)
		}, pollDone)
	}

	start := time.Now()
	snap, runErr := eng.Run()
	elapsed := time.Since(start)

	if showProgress {
		close(pollDone)
		prog.SetCurrent(cfg.NumConns)
		prog.Done()
	}

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}

	if runErr != nil {
		log.Errorf("run failed: %s", runErr.Error())
		return ErrRunFailed.Error(runErr)
	}

	colour := !cfg.NoColor && report.IsTTY(os.Stdout)
	report.Render(os.Stdout, snap, report.CollectRusage(), elapsed, colour)

	if aggErr := eng.Errors(); aggErr != nil {
		log.Warnf("run completed with failures: %s", aggErr.Error())
	}

	log.Infof("run complete in %s", elapsed.Round(time.Millisecond))
	return nil
}
