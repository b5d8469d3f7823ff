package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fundflow/chainsync"
	"fundflow/config"
	"fundflow/invoker"
	"fundflow/ledger"
	"fundflow/notify"
	"fundflow/observability"
	"fundflow/observability/logging"
	oteltel "fundflow/observability/otel"
	"fundflow/rpc"
	"fundflow/seed"
	"fundflow/server"
	"fundflow/settings"
	"fundflow/storage"
	"fundflow/tx"
	"fundflow/wallet"
)

const (
	shutdownTimeout = 10 * time.Second

	notificationLimit = 64
	notificationTTL   = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "fundflow.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logging is not configured yet; stderr is all we have.
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, closeLogs := logging.Setup(cfg.Log, "fundflowd")
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		shutdown, err := oteltel.Init(ctx, oteltel.Config{
			ServiceName: "fundflowd",
			Environment: cfg.Telemetry.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Traces:      cfg.Telemetry.Traces,
			Metrics:     cfg.Telemetry.Metrics,
		})
		if err != nil {
			logger.Error("init telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	store, err := storage.OpenBolt(cfg.DatabasePath)
	if err != nil {
		logger.Error("open state database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	prefs, err := settings.New(store)
	if err != nil {
		logger.Error("load settings", "error", err)
		os.Exit(1)
	}
	history, err := ledger.Load(store, logger)
	if err != nil {
		logger.Error("load invocation ledger", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	node := rpc.NewClient(rpc.Config{
		URL:               cfg.Node.URL,
		AuthToken:         cfg.Node.AuthToken,
		Timeout:           cfg.NodeTimeout(),
		RequestsPerSecond: cfg.Node.RequestsPerSecond,
	})

	hub := notify.NewHub(notificationLimit, notificationTTL)
	defer hub.Close()

	syncer := chainsync.NewSynchronizer(
		chainsync.NewFetcher(node, prefs, logger),
		seed.Snapshot(),
		chainsync.WithSyncLogger(logger),
		chainsync.WithSyncMetrics(metrics),
	)

	submitter := tx.NewSubmitter(node, cfg.Network.Passphrase,
		tx.WithPollInterval(cfg.PollInterval()),
		tx.WithMaxPollAttempts(cfg.Sync.MaxPollAttempts),
		tx.WithLogger(logger),
	)

	invokerOpts := []invoker.Option{
		invoker.WithExplorerBase(cfg.Network.ExplorerBase),
		invoker.WithLogger(logger),
		invoker.WithMetrics(metrics),
		invoker.WithSettledHook(syncer.Trigger),
	}
	if cfg.Wallet.SeedEnv != "" {
		signer, err := wallet.NewLocalSignerFromEnv(cfg.Wallet.SeedEnv)
		if err != nil {
			logger.Error("load wallet", "env", cfg.Wallet.SeedEnv, "error", err)
			os.Exit(1)
		}
		logger.Info("wallet loaded", "address", signer.Address())
		invokerOpts = append(invokerOpts, invoker.WithSigner(signer))
	} else {
		logger.Warn("no wallet configured, invocations will be rejected")
	}
	runner := invoker.New(submitter, history, prefs, hub, cfg.Network.ExplorerName, invokerOpts...)

	syncer.Start(ctx, cfg.RefreshInterval())
	defer syncer.Stop()

	api := server.New(syncer, runner, history, prefs, hub, node,
		server.WithMinDonationBalance(cfg.Wallet.MinDonationBalance),
		server.WithLogger(logger),
		server.WithGatherer(registry),
	)
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: api.Handler()}

	go func() {
		logger.Info("fundflow gateway listening", "addr", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down fundflow gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}
