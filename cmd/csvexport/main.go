package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csvexport/internal/config"
	"csvexport/internal/export"
	"csvexport/internal/metrics"
	"csvexport/internal/metrics/datadog"
	"csvexport/internal/metrics/prompush"

	// register every source kind with the source registry; the job file picks
	// which ones run.
	_ "csvexport/internal/source/all"
)

// main is the entry point for the csvexport binary. It loads the job file,
// optionally initializes a metrics backend and runs every export.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// run is main without the process exit. It returns the exit code.
func run(ctx context.Context, args []string, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("csvexport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		validate          bool
		verbose           bool
	)
	fs.StringVar(&cfgPath, "config", "configs/jobs/sample.json", "job config JSON path")
	fs.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	fs.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	fs.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.SetOutput(stderr)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	config.ApplyEnv(&cfg, getenv)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		return 1
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		return 0
	}

	// Decide metrics backend: flag → env → none.
	backendName := pick(metricsBackendFlg, getenv("METRICS_BACKEND"), "none")
	if closeMetrics := setupMetrics(backendName, cfg.Job, pushGatewayURLFlg, datadogAddrFlg, getenv, verbose); closeMetrics != nil {
		defer closeMetrics()
	}

	var opts []export.Option
	if verbose {
		opts = append(opts, export.WithLogger(log.Default()))
		log.Printf("job: name=%s exports=%d concurrency=%d", cfg.Job, len(cfg.Exports), cfg.Runtime.Concurrency)
	}

	start := time.Now()
	if _, err := export.Run(ctx, cfg, opts...); err != nil {
		log.Printf("%v", err)
		return 1
	}
	if verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return 0
}

// setupMetrics installs the named backend and returns the function that
// flushes it, or nil when metrics stay disabled.
func setupMetrics(name, job, gwFlag, ddFlag string, getenv func(string) string, verbose bool) func() {
	var (
		b     metrics.Backend
		closeFn func() error
	)
	switch strings.ToLower(name) {
	case "pushgateway":
		gwURL := pick(gwFlag, getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		pb, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, name, job)
		b = pb

	case "datadog":
		addr := pick(ddFlag, getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "csvexport.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, name)
		b, closeFn = db, db.Close

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
		return nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return nil
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
		if closeFn != nil {
			if err := closeFn(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}
	}
}

// pick returns the first non-empty value.
func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
