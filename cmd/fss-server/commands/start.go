package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/config"
	"github.com/marmos91/fss/internal/fss"
	"github.com/marmos91/fss/internal/logger"
	"github.com/marmos91/fss/internal/metrics"
	"github.com/marmos91/fss/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fss-server daemon",
	Long: `Start the fss-server daemon in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/fss/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("fss-server starting",
		"socket_path", cfg.SocketPath,
		"n_workers", cfg.NWorkers,
		"max_files", cfg.MaxFiles,
		"max_bytes", cfg.MaxBytes.String())

	collector := metrics.New(cfg.Metrics.Enabled)
	if collector != nil {
		metricsSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: collector.Handler(),
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", logger.Err(err))
			}
		}()
		defer func() { _ = metricsSrv.Close() }()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	store := fss.New(int64(cfg.MaxBytes), cfg.MaxFiles, cfg.HashBuckets, collector)

	srv := server.New(server.Config{
		SocketPath:        cfg.SocketPath,
		SocketBacklog:     cfg.SocketBacklog,
		NWorkers:          cfg.NWorkers,
		MaxClientsAtStart: cfg.MaxClientsAtStart,
	}, store, collector)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve()
	}()

	select {
	case <-srv.WaitReady():
		logger.Info("fss-server listening", "socket_path", cfg.SocketPath)
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining connections")
		srv.Stop()
		<-serverDone
		logger.Info("fss-server stopped gracefully")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("fss-server stopped")
	}

	return nil
}
