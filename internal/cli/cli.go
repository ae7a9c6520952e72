// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the frace command, which races simulated
// producers described by a YAML file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gogama/frace"
	"github.com/gogama/frace/health"
	"github.com/gogama/frace/internal/sim"
	"github.com/gogama/frace/metrics"
	"github.com/gogama/frace/race"
	"github.com/gogama/frace/trace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	nettrace "golang.org/x/net/trace"
)

const traceFamily = "frace.Race"

type runOptions struct {
	races       int
	interval    time.Duration
	metricsAddr string
	verbose     bool
}

// BuildCLI returns the root frace command.
func BuildCLI() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "frace",
		Short: "Race interchangeable producers with failover and circuit breaking",
		Long: `frace runs races between buckets of simulated producers:
- buckets race concurrently, producers within a bucket fail over in order
- failing producers back off exponentially and are eventually disabled
- Prometheus metrics and request traces are served on demand`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "frace.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand(&configFile))
	rootCmd.AddCommand(buildStatusCommand(&configFile))

	return rootCmd
}

func buildRunCommand(configFile *string) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run races between the configured buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&opts.races, "races", "n", 1, "number of races to run")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pause between races")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /debug/requests on this address until interrupted")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every attempt")

	return cmd
}

func buildStatusCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured scheduler, producers and buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printStatus(cmd.OutOrStdout(), *configFile, cfg)
			return nil
		},
	}
}

func run(ctx context.Context, cfg *Config, opts runOptions, out, errOut io.Writer) error {
	if opts.races < 1 {
		return errors.New("--races must be at least 1")
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	s := frace.NewScheduler(cfg.Scheduler)
	s.Logger = logger
	s.Handlers = &frace.HandlerGroup{}
	frace.NewLogHandler(logger).Install(s.Handlers)
	if st := cfg.starter(); st != nil {
		s.Starter = st
	}
	if p := cfg.timeoutPolicy(); p != nil {
		s.TimeoutPolicy = p
	}

	for i, spec := range cfg.Producers {
		s.Register(spec.ID, sim.New(spec, cfg.Seed+int64(i)), spec.Timeout)
	}

	var collector *metrics.Collector
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		collector.Install(s.Handlers)
		collector.ObserveSnapshot(s.Tracker.Snapshot())
		s.Tracker.OnTransition(collector.ObserveTransition)
		trace.NewHandler(traceFamily).Install(s.Handlers)

		srv := &http.Server{Addr: opts.metricsAddr, Handler: serveMux(reg)}
		go func() {
			logger.Info("serving metrics", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	buckets := cfg.buckets()
	won := 0
RaceLoop:
	for i := 0; i < opts.races; i++ {
		e, err := s.Race(ctx, buckets...)
		printOutcome(out, i+1, e, err)
		if err == nil {
			won++
		}
		if errors.Is(err, frace.ErrRaceCancelled) {
			break
		}
		if opts.interval > 0 && i < opts.races-1 {
			timer := time.NewTimer(opts.interval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				break RaceLoop
			}
		}
	}

	fmt.Fprintf(out, "\n%d/%d races won\n\n", won, opts.races)
	printHealth(out, s.Tracker.Snapshot(), time.Now())

	if collector != nil && ctx.Err() == nil {
		logger.Info("races done, serving metrics until interrupted")
		<-ctx.Done()
	}
	return nil
}

func serveMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	mux.HandleFunc("/debug/requests", nettrace.Traces)
	mux.HandleFunc("/debug/events", nettrace.Events)
	return mux
}

func printOutcome(out io.Writer, n int, e *race.Execution, err error) {
	switch {
	case err == nil:
		fmt.Fprintf(out, "race %d: won by %s (bucket %d) in %s: %v\n",
			n, e.Winner.ProducerID, e.Winner.Bucket, e.Duration().Round(time.Millisecond), e.Result)
	case errors.Is(err, frace.ErrRaceCancelled):
		fmt.Fprintf(out, "race %d: cancelled\n", n)
	default:
		fmt.Fprintf(out, "race %d: %v\n", n, err)
	}
}

func printHealth(out io.Writer, statuses []health.Status, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCER\tSTATE\tFAILURES\tLEVEL\tREMAINING")
	for _, st := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			st.ID, st.State, st.ConsecutiveFailures, st.BackoffLevel, st.Remaining(now).Round(time.Millisecond))
	}
	_ = w.Flush()
}

func printStatus(out io.Writer, path string, cfg *Config) {
	c := cfg.Scheduler
	fmt.Fprintf(out, "Config file:        %s\n", path)
	fmt.Fprintf(out, "Default timeout:    %s\n", c.DefaultTimeout)
	fmt.Fprintf(out, "Failure threshold:  %d\n", c.FailureThreshold)
	fmt.Fprintf(out, "Backoff:            %s to %s\n", c.BaseBackoffDelay, c.MaxBackoffDelay)
	if c.DisableThreshold == health.NeverDisable {
		fmt.Fprintf(out, "Disable threshold:  never\n")
	} else {
		fmt.Fprintf(out, "Disable threshold:  %d\n", c.DisableThreshold)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCER\tLATENCY\tJITTER\tFAILURE RATE\tTIMEOUT")
	for _, p := range cfg.Producers {
		timeout := "default"
		if p.Timeout > 0 {
			timeout = p.Timeout.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", p.ID, p.Latency, p.Jitter, p.FailureRate, timeout)
	}
	_ = w.Flush()
	fmt.Fprintln(out)

	for i, b := range cfg.Buckets {
		fmt.Fprintf(out, "Bucket %d: %v\n", i, b)
	}
}
