package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-mirror/internal/app"
	"solana-mirror/internal/config"
	"solana-mirror/internal/engine"
	"solana-mirror/internal/executor"
	"solana-mirror/internal/jupiter"
	"solana-mirror/internal/observability"
	"solana-mirror/internal/solana"
	"solana-mirror/internal/storage"
	"solana-mirror/internal/storage/memory"
	"solana-mirror/internal/storage/migrations"
	"solana-mirror/internal/storage/postgres"
	"solana-mirror/internal/stream"
)

func main() {
	logger := log.New(os.Stdout, "[mirror] ", log.LstdFlags)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received %s, shutting down", sig)
		cancel()
	}()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	state, err := app.NewState(rpc, cfg.Wallet)
	if err != nil {
		logger.Fatalf("state: %v", err)
	}

	journal, cleanup, err := buildJournal(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("journal: %v", err)
	}
	defer cleanup()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	jup := jupiter.NewClient(
		jupiter.WithQuoteURL(cfg.JupiterQuoteURL),
		jupiter.WithSwapURL(cfg.JupiterSwapURL),
	)

	consumer := stream.NewConsumer(stream.Options{
		Endpoint: cfg.WSEndpoint,
		Target:   cfg.TargetPubkey,
		Logger:   logger,
	})

	exec := executor.NewExecutor(executor.Options{
		State:               state,
		Jupiter:             jup,
		SlippageBps:         cfg.SlippageBps,
		PriorityFeeLamports: cfg.PriorityFeeLamports,
		Logger:              logger,
	})

	trader := engine.NewTrader(engine.Options{
		Source:         consumer,
		Executor:       exec,
		Journal:        journal,
		Logger:         logger,
		MaxBuySOL:      cfg.MaxBuySOL,
		MirrorBuysOnly: cfg.MirrorBuysOnly,
	})

	logger.Printf("wallet %s mirroring %s (max %v SOL per buy, slippage %d bps)",
		state.WalletPubkey, cfg.TargetPubkey, cfg.MaxBuySOL, cfg.SlippageBps)

	if err := trader.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatalf("trader: %v", err)
	}
	logger.Println("stopped")
}

// buildJournal selects the trade journal backend: postgres when a DSN is
// configured, in-memory otherwise.
func buildJournal(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.TradeRecordStore, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Println("journal: using in-memory store")
		return memory.NewTradeRecordStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Println("journal: using postgres store")
	return postgres.NewTradeRecordStore(pool), pool.Close, nil
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("metrics listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("metrics server: %v", err)
	}
}
