package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voice-agent/internal/common/camunda"
	"voice-agent/internal/common/config"
	"voice-agent/internal/server"
	multiagentsearch "voice-agent/internal/workers/voice/multi-agent-search"
	processcommand "voice-agent/internal/workers/voice/process-command"
)

var serveFlags struct {
	port    int
	retries int
	noZeebe bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and speech gateway, plus Zeebe workers when enabled",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&serveFlags.port, "port", 0, "Override server.port")
	f.IntVar(&serveFlags.retries, "retries", 10, "Connection attempts per backend before giving up")
	f.BoolVar(&serveFlags.noZeebe, "no-zeebe", false, "Do not start Zeebe workers even if camunda.enabled is set")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if serveFlags.port > 0 {
		cfg.Server.Port = serveFlags.port
	}

	zapLog := newZapLogger(cfg)
	defer zapLog.Sync()

	zapLog.Info("Starting voice agent...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, zapLog, serveFlags.retries)
	if err != nil {
		return err
	}
	defer a.Close()

	commands := a.newDispatcher(nil)

	checks := a.readinessChecks()
	if cfg.Camunda.Enabled && !serveFlags.noZeebe {
		zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RetryConfig: &camunda.RetryConfig{
				MaxRetries: serveFlags.retries,
				BaseDelay:  2 * time.Second,
				MaxDelay:   30 * time.Second,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := zeebe.Close(); err != nil {
				zapLog.Error("Error closing Zeebe client", zap.Error(err))
			}
		}()
		zapLog.Info("Zeebe client connected successfully")
		checks["zeebe"] = zeebe.HealthCheck

		workers := camunda.NewWorkers(zeebe.Zeebe(), zapLog)
		defer workers.Close()

		pc := processcommand.NewHandler(processcommand.LoadConfig(), commands, commandWorkerLogger{a.log})
		workers.Start(processcommand.TaskType, config.GetWorkerConfig(cfg, processcommand.TaskType), pc.Handle)

		ms := multiagentsearch.NewHandler(multiagentsearch.LoadConfig(), a.pipeline, searchWorkerLogger{a.log})
		workers.Start(multiagentsearch.TaskType, config.GetWorkerConfig(cfg, multiagentsearch.TaskType), ms.Handle)
	}

	srv := server.New(&server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
	}, server.Dependencies{
		Commands: commands,
		Search:   a.pipeline,
		Sessions: a.newVoiceSession,
		Checks:   checks,
		Metrics:  promhttp.Handler(),
	}, serverLogger{a.log})

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	zapLog.Info("Voice agent stopped gracefully")
	return nil
}

// contextOrBackground guards commands invoked without a cobra context, as
// in tests that call RunE directly.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
