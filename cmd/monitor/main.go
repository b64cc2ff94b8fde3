// Package main runs the live pool monitor: it follows the transaction
// stream of a watched address, discovers AMM pools, polls their account
// state and persists swaps, liquidity events, pool states and market
// snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/monitor"
	"solana-pool-monitor/internal/observability"
	"solana-pool-monitor/internal/solana"
	"solana-pool-monitor/internal/storage"
	chstore "solana-pool-monitor/internal/storage/clickhouse"
	"solana-pool-monitor/internal/storage/memory"
	"solana-pool-monitor/internal/storage/migrations"
	pgstore "solana-pool-monitor/internal/storage/postgres"
)

func main() {
	// Parse flags
	address := flag.String("address", "", "Address whose transaction stream seeds pool discovery (required)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (required)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (optional; falls back to signature polling)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for market snapshots")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	pollInterval := flag.Duration("poll-interval", 5*time.Second, "Per-pool account poll interval")
	alertThreshold := flag.Float64("alert-threshold", 0.02, "Relative price move that raises an alert")
	maxFetches := flag.Int("max-fetches", 10, "Maximum concurrent account fetches")
	inactivityWindow := flag.Duration("inactivity-window", 72*time.Hour, "Evict pools with no update inside this window")
	pools := flag.String("pools", "", "Comma-separated pool addresses to monitor from the start")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags|log.Lshortfile)

	if *address == "" {
		logger.Fatal("--address is required")
	}
	if !solana.ValidAddress(*address) {
		logger.Fatalf("--address %q is not a valid Solana address", *address)
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, runConfig{
		address:          *address,
		rpcEndpoint:      *rpcEndpoint,
		wsEndpoint:       *wsEndpoint,
		postgresDSN:      *postgresDSN,
		clickhouseDSN:    *clickhouseDSN,
		useMemory:        *useMemory,
		pollInterval:     *pollInterval,
		alertThreshold:   *alertThreshold,
		maxFetches:       *maxFetches,
		inactivityWindow: *inactivityWindow,
		pools:            splitList(*pools),
	})

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	address          string
	rpcEndpoint      string
	wsEndpoint       string
	postgresDSN      string
	clickhouseDSN    string
	useMemory        bool
	pollInterval     time.Duration
	alertThreshold   float64
	maxFetches       int
	inactivityWindow time.Duration
	pools            []string
}

func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)

	var ws solana.WSClient
	if cfg.wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
		if err != nil {
			return fmt.Errorf("create websocket client: %w", err)
		}
		defer wsClient.Close()
		ws = wsClient
	}

	// Create stores (use interfaces)
	var swapStore storage.SwapEventStore = memory.NewSwapEventStore()
	var liquidityStore storage.LiquidityEventStore = memory.NewLiquidityEventStore()
	var poolStateStore storage.PoolStateStore = memory.NewPoolStateStore()
	var snapshotStore storage.MarketSnapshotStore = memory.NewMarketSnapshotStore()

	if !cfg.useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		swapStore = pgstore.NewSwapEventStore(pool)
		liquidityStore = pgstore.NewLiquidityEventStore(pool)
		poolStateStore = pgstore.NewPoolStateStore(pool)

		// Snapshots go to ClickHouse when a DSN is given, otherwise
		// they stay in memory.
		if cfg.clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			defer conn.Close()
			snapshotStore = chstore.NewMarketSnapshotStore(conn)
		}
	}

	m, err := monitor.New(monitor.Options{
		Config: monitor.Config{
			Address:              cfg.address,
			PollInterval:         cfg.pollInterval,
			AlertThreshold:       cfg.alertThreshold,
			MaxConcurrentFetches: cfg.maxFetches,
			InactivityWindow:     cfg.inactivityWindow,
		},
		RPC: rpc,
		WS:  ws,
		Persister: &storage.Stores{
			Swaps:     swapStore,
			Liquidity: liquidityStore,
			Pools:     poolStateStore,
			Snapshots: snapshotStore,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}

	// Log the interesting events; metrics cover the rest.
	m.Bus().OnTrade(func(ev domain.SwapEvent) {
		logger.Printf("swap %s pool=%s %g %s -> %g %s",
			ev.Signature, ev.PoolAddress,
			ev.InputToken.Amount, ev.InputToken.Mint,
			ev.OutputToken.Amount, ev.OutputToken.Mint)
	})
	m.Bus().OnPriceAlert(func(a domain.PriceAlert) {
		logger.Printf("price alert pool=%s %.6f -> %.6f (%.2f%%) slot=%d",
			a.PoolAddress, a.OldPrice, a.NewPrice, a.PercentChange*100, a.TriggeredAtSlot)
	})
	m.Bus().OnError(func(ev monitor.ErrorEvent) {
		logger.Printf("error category=%s pool=%s: %v", ev.Category, ev.PoolAddress, ev.Err)
	})

	if err := m.Start(); err != nil {
		return err
	}

	for _, p := range cfg.pools {
		if !solana.ValidAddress(p) {
			logger.Printf("skipping invalid pool address %q", p)
			continue
		}
		m.DiscoverPool(p, domain.ProtocolUnknown)
	}

	logger.Printf("Monitoring address %s (%d seeded pools)", cfg.address, len(cfg.pools))

	<-ctx.Done()
	m.Stop()
	return ctx.Err()
}

// splitList splits a comma-separated flag value, dropping empties.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
