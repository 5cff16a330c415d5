package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"yiyi-hq/gateway/pkg/chat"
	"yiyi-hq/gateway/pkg/cli"
	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/maintenance"
	"yiyi-hq/gateway/pkg/providerfactory"
	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/server"
	"yiyi-hq/gateway/pkg/session"
	"yiyi-hq/gateway/pkg/telemetry/logging"
	"yiyi-hq/gateway/pkg/telemetry/metrics"
	"yiyi-hq/gateway/pkg/telemetry/tracing"
	"yiyi-hq/gateway/pkg/usage"
)

type gatewayFlags struct {
	port   int
	host   string
	dryRun bool
}

func newGatewayCmd() *cobra.Command {
	var flags gatewayFlags

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Start the chat gateway",
		Long: `Start the WebSocket chat gateway.

The gateway serves the relay on /ws (and on / for upgrade requests), health
probes on /health, /health/live and /health/ready, and Prometheus metrics on
/metrics. The configuration file is watched and reloaded on change; the next
turn uses the new model chain.

Examples:
  # Start with ~/.yiyi/config.yaml
  yiyi gateway

  # Override the listen address
  yiyi gateway -H 0.0.0.0 -p 8080

  # Validate config without starting the server
  yiyi gateway --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", config.DefaultPort, "port to listen on")
	cmd.Flags().StringVarP(&flags.host, "host", "H", config.DefaultHost, "interface to bind")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "validate config without starting the server")
	return cmd
}

func runGateway(cmd *cobra.Command, flags gatewayFlags) error {
	p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// flags go through the environment so they also survive reloads
	if cmd.Flags().Changed("port") {
		os.Setenv("YIYI_GATEWAY_PORT", strconv.Itoa(flags.port))
	}
	if cmd.Flags().Changed("host") {
		os.Setenv("YIYI_GATEWAY_HOST", flags.host)
	}

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	if flags.dryRun {
		p.Success("configuration valid: %s", cfgFile)
		if cfg.Model.Primary == "" {
			p.Warn("model.primary is not set; every turn will fail with CONFIG_ERROR")
		}
		return nil
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	defer logger.Shutdown()
	logger.SetDefault()

	logDir := config.ExpandHome(cfg.Logging.Dir)
	if removed, err := logging.PruneOldLogs(logDir, cfg.Logging.MaxAge); err != nil {
		logger.Warn("failed to prune old log files", "dir", logDir, "error", err)
	} else if removed > 0 {
		logger.Info("pruned old log files", "dir", logDir, "removed", removed)
	}

	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Namespace, nil)
	collector.RegisterRuntimeCollectors()

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var ledger usage.Ledger
	if cfg.Usage.Enabled {
		ledger, err = usage.Open(cfg.Usage)
		if err != nil {
			return fmt.Errorf("failed to open usage ledger: %w", err)
		}
		logger.Info("usage ledger opened", "backend", cfg.Usage.Backend)
	}

	scheduler, err := maintenance.FromConfig(cfg, ledger)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	registry := providerfactory.NewDefaultRegistry(providers.TransportOptions{})
	defer registry.Close()

	store := session.NewStore(cfg.Sessions.MaxHistory)
	tracker := providers.NewHealthTracker()

	service := chat.NewService(chat.ServiceOptions{
		Registry: registry,
		Store:    store,
		Health:   tracker,
		Usage:    ledger,
		Metrics:  collector,
		Tracer:   tracer,
		Logger:   logger.Slog(),
	})

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	startWatcher(ctx, logger, store)

	srv := server.New(server.Options{
		Chat:      service,
		Health:    tracker,
		Usage:     ledger,
		Metrics:   collector,
		Tracer:    tracer,
		Scheduler: scheduler,
		Build:     server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Logger:    logger.Slog(),
	})

	addr := server.Address(cfg)
	p.Success("YiYi gateway %s", Version)
	p.Faint("  relay:   ws://%s/ws\n", addr)
	p.Faint("  health:  http://%s/health\n", addr)
	if cfg.Model.Primary == "" {
		p.Warn("model.primary is not set; every turn will fail with CONFIG_ERROR")
	} else {
		p.Faint("  model:   %s (+%d fallbacks)\n", cfg.Model.Primary, len(cfg.Model.Fallbacks))
	}

	return srv.Start(ctx)
}

// startWatcher reloads the config file on change. A watcher that cannot
// start only costs hot reload.
func startWatcher(ctx context.Context, logger *logging.Logger, store *session.Store) {
	watcher, err := config.NewWatcher(config.Path(), logger.Slog(), func(cfg *config.Config) {
		store.SetMaxHistory(cfg.Sessions.MaxHistory)
	})
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
		return
	}

	go func() {
		defer watcher.Stop()
		if err := watcher.Watch(ctx); err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		}
	}()
}
