// Command salserver bootstraps the storage abstraction layer: it loads
// configuration, dials the index/object service collaborators, and wires
// the resulting capability set (spec.md §6.2) for a front-end (an S3
// gateway, an admin CLI, ...) to drive.
//
// The index/object service and layout catalog are external collaborators
// (spec.md §1, §6.1) this binary does not implement; production
// deployments link in their own backend.IndexService/ObjectService and
// pass it to store.New. Without -demo this binary has nothing to dial and
// exits after a config dry-run; -demo wires the in-memory fake backend so
// the capability set can be smoke-tested end to end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/config"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (SAL_ env vars and defaults otherwise)")
	demo := flag.Bool("demo", false, "wire the in-memory fake backend instead of exiting after the config dry-run")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err, "salserver: load config")
	}

	if !*demo {
		logger.Info(ctx, "salserver: config OK (use_metadata_cache=%v gc_enabled=%v tiered_enabled=%v); no backend wired, exiting", cfg.UseMetadataCache, cfg.GCEnabled, cfg.TieredEnabled)
		return
	}

	// -demo has no NATS broker to enqueue deletions to; fall back to
	// the synchronous deleter regardless of gc_enabled.
	cfg.GCEnabled = false

	fb := backend.NewFake()
	s, err := store.New(ctx, cfg, fb, fb, fb)
	if err != nil {
		logger.Fatal(err, "salserver: wire store")
	}
	defer s.Close()

	logger.Info(ctx, "salserver: demo store ready, capability set wired (engine + multipart), idle until signaled")
	<-ctx.Done()
	logger.Info(ctx, "salserver: shutting down")
	os.Exit(0)
}
