package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/api"
	"github.com/rmax-ai/schemabuilder/pkg/engine"
	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/source"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "schemabuilder-d: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schemabuilder-d: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Named("schemabuilder-d")

	if err := run(cfg, log); err != nil {
		log.Error("daemon_failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg Config, log *logger.Logger) error {
	log.Info("system_started", "addr", cfg.Addr, "source_url", cfg.SourceURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vocab := graph.SchemaOrg
	if cfg.ProfilePath != "" {
		v, err := engine.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return err
		}
		vocab = *v
		log.Info("profile_loaded", "path", cfg.ProfilePath, "namespace", vocab.Namespace)
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Error("failed_to_close_backends", "error", err)
		}
	}()

	fetcher := source.NewFetcher(source.Options{
		URL:     cfg.SourceURL,
		Cache:   b.cache,
		Archive: b.blobs,
		Logger:  log,
	})

	mat := engine.NewMaterializer(b.store, b.guard, log)
	if cfg.Lock {
		id := holderID()
		mat.SetLocker(b.locker, id, cfg.LockTTL)
		log.Info("materialize_lock_enabled", "holder_id", id, "ttl", cfg.LockTTL.String())
	}
	pipeline := engine.NewPipeline(fetcher, vocab, mat, nil, log)

	srv := api.NewServer(b.store, cfg.Addr, log)
	srv.SetPipeline(pipeline)
	srv.SetGuard(b.guard)
	srv.SetProjection(pipeline.Projection())
	srv.SetVocabulary(vocab)
	srv.SetAdminToken(cfg.AdminToken)
	if cfg.TLSCertFile != "" {
		srv.SetTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}
	if cfg.AdminToken == "" {
		log.Warn("admin_api_disabled", "reason", "SCHEMABUILDER_ADMIN_TOKEN not set")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	refresher := engine.NewRefresher(pipeline, cfg.RefreshInterval, log)
	go refresher.Start(ctx)

	// SIGHUP re-runs the pipeline; a set guard makes that a cheap no-op.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				log.Info("refresh_requested", "signal", sig.String())
				go func() {
					if _, err := pipeline.Run(ctx); err != nil {
						log.Warn("refresh_failed", "error", err)
					}
				}()
				continue
			}

			log.Info("shutdown_initiated", "signal", sig.String())
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error("failed_to_stop_server", "error", err)
			}
			log.Info("shutdown_complete")
			return nil
		}
	}
}
