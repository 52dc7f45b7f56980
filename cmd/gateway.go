package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/campaign"
	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/distribute"
	"github.com/nextlevelbuilder/leadclaw/internal/followup"
	"github.com/nextlevelbuilder/leadclaw/internal/gateway"
	"github.com/nextlevelbuilder/leadclaw/internal/generation"
	"github.com/nextlevelbuilder/leadclaw/internal/leads"
	"github.com/nextlevelbuilder/leadclaw/internal/notify"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/internal/store/file"
	"github.com/nextlevelbuilder/leadclaw/internal/store/pg"
	"github.com/nextlevelbuilder/leadclaw/internal/telemetry"
	"github.com/nextlevelbuilder/leadclaw/internal/transport"
	"github.com/nextlevelbuilder/leadclaw/internal/webhook"
	"github.com/nextlevelbuilder/leadclaw/pkg/protocol"
)

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the engagement gateway",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}
}

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	stores, mode := openStores(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		shutdownTelemetry(flushCtx)
	}()

	timeout := time.Duration(cfg.Transport.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transportClient := transport.New(cfg.Transport.BaseURL, timeout,
		transport.WithSendRate(cfg.Transport.SendRatePerMinute))

	provider := generation.NewOpenAIProvider(cfg.Generation.Provider,
		cfg.Generation.APIKey, cfg.Generation.APIBase, cfg.Generation.Model)

	msgBus := bus.New()
	notifier := notify.New(msgBus, transportClient, stores.Tenants)
	tracker := leads.NewTracker(stores.Leads)

	registry := campaign.NewRegistry(stores.Campaigns, stores.Channels,
		transportClient, notifier,
		cfg.Campaigns.CheckpointEvery, cfg.Campaigns.MinDelaySeconds, cfg.Campaigns.MaxDelaySeconds)

	distributor := distribute.New(stores.Roster, stores.Cursors, transportClient, notifier)

	pipeline := leads.NewPipeline(msgBus, stores.Channels, tracker,
		transportClient, provider, notifier, distributor,
		cfg.Generation, cfg.Engage)

	sweeper := followup.New(cfg.FollowUp, stores.Channels, tracker, transportClient, notifier)

	webhookLimit := cfg.Gateway.WebhookRateLimit
	if webhookLimit <= 0 {
		webhookLimit = 300
	}
	webhookHandler := webhook.NewHandler(msgBus, stores.Channels,
		webhook.NewRateLimiter(webhookLimit, time.Minute))

	server := gateway.NewServer(cfg, msgBus, webhookHandler, registry, tracker, stores.Channels)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		msgBus.Broadcast(bus.Event{Name: protocol.EventShutdown})
		cancel()
	}()

	slog.Info("leadclaw gateway starting",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"mode", mode,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pipeline.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}

// openStores picks the storage backend per config: Postgres in managed mode,
// the local document store otherwise.
func openStores(cfg *config.Config) (*store.Stores, string) {
	if cfg.IsManagedMode() {
		stores, err := pg.NewStores(cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to open postgres stores", "error", err)
			os.Exit(1)
		}
		return stores, "managed"
	}

	dir := config.ExpandHome(cfg.Storage.Dir)
	stores, err := file.NewStores(dir)
	if err != nil {
		slog.Error("failed to open file stores", "dir", dir, "error", err)
		os.Exit(1)
	}
	return stores, "standalone"
}
