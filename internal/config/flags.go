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
	homedir "github.com/mitchellh/go-homedir"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// NewCommand builds the mcperf root command. Flags are bound through a
// private viper instance the way the teacher's config/components packages
// bind theirs (PersistentFlags + BindPFlag), collapsed here to one command
// since mcperf is a single-purpose batch tool rather than a multi-component
// service. run is invoked with the bound, validated Config once cobra has
// parsed argv; it is not invoked at all if flag parsing or Validate fails.
func NewCommand(run func(Config) error) *spfcbr.Command {
	var (
		v   = spfvpr.New()
		cfg = Default()
	)

	cmd := &spfcbr.Command{
		Use:          "mcperf <server:port>",
		Short:        "memcached-protocol load generator",
		Args:         spfcbr.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			cfg.Address = args[0]

			if cfg.ConfigFile != "" {
				path, err := homedir.Expand(cfg.ConfigFile)
				if err != nil {
					return ErrConfigFileUnreadable.Error(err)
				}
				cfg.ConfigFile = path

				v.SetConfigFile(cfg.ConfigFile)
				if err := v.ReadInConfig(); err != nil {
					return ErrConfigFileUnreadable.Error(err)
				}
				if err := applyFileOverlay(v, &cfg); err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	registerFlags(cmd, v, &cfg)

	return cmd
}

func registerFlags(cmd *spfcbr.Command, v *spfvpr.Viper, cfg *Config) {
	f := cmd.Flags()

	f.StringVar(&cfg.Client, "client", cfg.Client, "client index/count as I/N, seeds randomness only")
	f.IntVar(&cfg.NumConns, "num-conns", cfg.NumConns, "number of connections to drive")
	f.IntVar(&cfg.NumCalls, "num-calls", cfg.NumCalls, "number of calls to issue per connection")
	f.StringVar(&cfg.ConnRate, "conn-rate", cfg.ConnRate, "connection-open rate: [d|u|e|s]R1[,R2]")
	f.StringVar(&cfg.CallRate, "call-rate", cfg.CallRate, "call-issue rate: [d|u|e|s]R1[,R2]")
	f.StringVar(&cfg.Size, "size", cfg.Size, "item size distribution in bytes: [d|u|e|s]R1[,R2]")
	f.StringVar(&cfg.Method, "method", cfg.Method, "method token: set/add/replace/append/prepend/cas/get/gets/delete/incr/decr")
	f.IntVar(&cfg.Expiry, "expiry", cfg.Expiry, "expiry seconds for storage commands")
	f.BoolVar(&cfg.Noreply, "noreply", cfg.Noreply, "append noreply to every command that supports it")
	f.StringVar(&cfg.KeyPrefix, "prefix", cfg.KeyPrefix, "key prefix, at most 16 bytes")

	f.Float64Var(&cfg.Timeout, "timeout", cfg.Timeout, "connect/response timeout seconds, 0 disables")
	f.IntVar(&cfg.Linger, "linger", cfg.Linger, "SO_LINGER seconds, 0 leaves the OS default")
	f.IntVar(&cfg.SendBuf, "sndbuf", cfg.SendBuf, "SO_SNDBUF bytes, 0 leaves the OS default")
	f.IntVar(&cfg.RecvBuf, "rcvbuf", cfg.RecvBuf, "SO_RCVBUF bytes, 0 leaves the OS default")
	f.BoolVar(&cfg.DisableNodelay, "disable-nodelay", cfg.DisableNodelay, "do not set TCP_NODELAY")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "fatal|error|warn|info|debug")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append logs to this file in addition to stderr")
	f.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable coloured report output")
	f.BoolVar(&cfg.Progress, "progress", cfg.Progress, "show a live progress bar while the run is in flight")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve /metrics on, empty disables it")
	f.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "optional YAML file overlaying these flags")

	for _, name := range []string{
		"client", "num-conns", "num-calls", "conn-rate", "call-rate", "size",
		"method", "expiry", "noreply", "prefix", "timeout", "linger", "sndbuf",
		"rcvbuf", "disable-nodelay", "log-level", "log-file", "no-color",
		"progress", "metrics-addr",
	} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
	v.SetEnvPrefix("MCPERF")
	v.AutomaticEnv()
}

// applyFileOverlay re-reads every bound key from viper after a config file
// has been merged in, so file values win over flag defaults but an
// explicit flag (cobra already wrote it into cfg by this point) still
// takes precedence over both -- matching viper's own precedence order
// (explicit set > flag > env > config file > default) applied manually
// since cfg's fields are plain Go values rather than viper-backed.
func applyFileOverlay(v *spfvpr.Viper, cfg *Config) error {
	if v.IsSet("client") {
		cfg.Client = v.GetString("client")
	}
	if v.IsSet("num-conns") {
		cfg.NumConns = v.GetInt("num-conns")
	}
	if v.IsSet("num-calls") {
		cfg.NumCalls = v.GetInt("num-calls")
	}
	if v.IsSet("conn-rate") {
		cfg.ConnRate = v.GetString("conn-rate")
	}
	if v.IsSet("call-rate") {
		cfg.CallRate = v.GetString("call-rate")
	}
	if v.IsSet("size") {
		cfg.Size = v.GetString("size")
	}
	if v.IsSet("method") {
		cfg.Method = v.GetString("method")
	}
	if v.IsSet("expiry") {
		cfg.Expiry = v.GetInt("expiry")
	}
	if v.IsSet("noreply") {
		cfg.Noreply = v.GetBool("noreply")
	}
	if v.IsSet("prefix") {
		cfg.KeyPrefix = v.GetString("prefix")
	}
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetFloat64("timeout")
	}
	if v.IsSet("linger") {
		cfg.Linger = v.GetInt("linger")
	}
	if v.IsSet("sndbuf") {
		cfg.SendBuf = v.GetInt("sndbuf")
	}
	if v.IsSet("rcvbuf") {
		cfg.RecvBuf = v.GetInt("rcvbuf")
	}
	if v.IsSet("disable-nodelay") {
		cfg.DisableNodelay = v.GetBool("disable-nodelay")
	}
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("log-file") {
		cfg.LogFile = v.GetString("log-file")
	}
	if v.IsSet("no-color") {
		cfg.NoColor = v.GetBool("no-color")
	}
	if v.IsSet("progress") {
		cfg.Progress = v.GetBool("progress")
	}
	if v.IsSet("metrics-addr") {
		cfg.MetricsAddr = v.GetString("metrics-addr")
	}
	return nil
}
