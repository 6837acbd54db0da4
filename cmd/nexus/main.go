// Copyright 2025 Certen Protocol
//
// Nexus host binary. Wires the execution core's components together,
// starts the RPC surface and the execution engine, and waits for a
// shutdown signal.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/nexus/pkg/config"
	"github.com/certen/nexus/pkg/engine"
	"github.com/certen/nexus/pkg/mempool"
	"github.com/certen/nexus/pkg/metrics"
	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/proofadapter"
	"github.com/certen/nexus/pkg/server"
	"github.com/certen/nexus/pkg/statestore"
	"github.com/certen/nexus/pkg/stf"
	"github.com/certen/nexus/pkg/types"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "nexus.yaml", "path to the Nexus host configuration file")
	showHelp := flag.Bool("help", false, "show help message")
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Printf("nexus: fatal error: %v", err)
		os.Exit(1)
	}
	log.Println("nexus: clean shutdown")
}

func run(cfg *config.Config) error {
	dbDir := cfg.Storage.Path
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	var db dbm.DB
	var err error
	switch cfg.Storage.Backend {
	case "memdb":
		db = dbm.NewMemDB()
	default:
		db, err = dbm.NewGoLevelDB("nexus", dbDir)
	}
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer db.Close()

	mp, err := mempool.New(db)
	if err != nil {
		return fmt.Errorf("opening mempool: %w", err)
	}
	store, err := statestore.New(db)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	persist := persistence.New(db)
	headers, err := persistence.LoadHeaderStore(db, cfg.Engine.HeaderStoreCapacity)
	if err != nil {
		return fmt.Errorf("loading header store: %w", err)
	}

	backend, err := cfg.Proof.ProofBackend()
	if err != nil {
		return fmt.Errorf("resolving proof backend: %w", err)
	}
	adapter, err := proofadapter.New(backend)
	if err != nil {
		return fmt.Errorf("constructing proof adapter: %w", err)
	}

	m := metrics.New()
	eng := engine.New(mp, store, persist, adapter, stf.AcceptAllVerifier{}, m,
		headers, log.New(os.Stdout, "[engine] ", log.LstdFlags))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The relayer subscription client lives outside this repository;
	// this channel is the contract it feeds. Nothing in this binary
	// produces headers on it — an external relayer process owns that.
	daHeaders := make(chan types.DAHeader, cfg.Engine.HeaderChannelBuffer)
	if err := eng.Start(ctx, daHeaders); err != nil {
		return fmt.Errorf("starting execution engine: %w", err)
	}

	rpcServer := server.New(db, mp, store, persist, cfg.Engine.HeaderStoreCapacity,
		log.New(os.Stdout, "[server] ", log.LstdFlags))
	httpServer := &http.Server{Addr: cfg.RPC.ListenAddr, Handler: rpcServer.Mux()}

	go func() {
		log.Printf("nexus: RPC listening on %s", cfg.RPC.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("nexus: RPC server error: %v", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: metricsMux}
		go func() {
			log.Printf("nexus: metrics listening on %s", cfg.Metrics.ListenAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("nexus: metrics server error: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	grace := cfg.Engine.ShutdownGrace.Duration()
	select {
	case <-quit:
		log.Println("nexus: shutdown signal received")
		cancel()
		// The engine finishes its current batch (prove/commit) rather
		// than abandoning it mid-way; bound the wait so
		// a wedged batch cannot block shutdown forever.
		select {
		case <-eng.Done():
		case <-time.After(grace):
			log.Println("nexus: execution engine did not stop within grace period")
		}
		shutdownHTTP(httpServer, metricsServer, grace)
		return nil
	case <-eng.Done():
		cancel()
		shutdownHTTP(httpServer, metricsServer, grace)
		if err := eng.Err(); err != nil {
			return fmt.Errorf("execution engine stopped fatally: %w", err)
		}
		return nil
	}
}

func shutdownHTTP(rpcServer, metricsServer *http.Server, grace time.Duration) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
	defer shutdownCancel()
	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("nexus: RPC server shutdown error: %v", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("nexus: metrics server shutdown error: %v", err)
		}
	}
}
