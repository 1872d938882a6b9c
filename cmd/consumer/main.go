// Command consumer runs the status projector: it appends every bus
// event to the job event log, applies the status-projection table, and
// optionally mirrors events into a durable Postgres audit trail.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/subtitlebus/pkg/audit"
	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/projector"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

func main() {
	config.InitLogging("consumer")
	slog.Info("starting", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}

	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("load consumer config", "error", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := jobstore.New(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connect job store", "error", err)
		return
	}
	defer store.Close()

	var auditClient *audit.Client
	if cfg.AuditEnabled {
		auditClient, err = audit.NewClient(ctx, cfg.Audit)
		if err != nil {
			slog.Error("connect audit store, continuing without it", "error", err)
			auditClient = nil
		} else {
			defer auditClient.Close()
		}
	}

	b, err := bus.Connect(ctx, bus.Config{
		URL:              cfg.Bus.URL,
		ReconnectMinWait: cfg.Bus.ReconnectMinWait,
		ReconnectMaxWait: cfg.Bus.ReconnectMaxWait,
	})
	if err != nil {
		slog.Error("connect bus", "error", err)
		return
	}
	defer b.Close()

	var svc *projector.Service
	if auditClient != nil {
		svc = projector.New(store, auditClient)
	} else {
		svc = projector.New(store, nil)
	}

	runner := projector.NewRunner(b, 0)
	runner.Start(ctx, svc)
	defer runner.Stop()

	e := echo.New()
	e.HideBanner = true
	e.GET("/health", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/consumer", func(c *echo.Context) error {
		connected, lastMessageAt := runner.Healthy()
		status := "ok"
		if !connected {
			status = "degraded"
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":          status,
			"connected":       connected,
			"last_message_at": lastMessageAt,
		})
	})

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: e}
	go func() {
		slog.Info("consumer http surface listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("consumer http server", "error", err)
		}
	}()

	slog.Info("consumer started", "audit_enabled", cfg.AuditEnabled)
	<-ctx.Done()
	slog.Info("consumer shutting down")
	_ = httpServer.Shutdown(context.Background())
}
