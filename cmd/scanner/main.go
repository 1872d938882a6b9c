// Command scanner runs the media-detection service: filesystem watch,
// periodic full sync, and an on-demand HTTP trigger, all feeding
// subtitle.requested events to the manager.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/scanner"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

func main() {
	config.InitLogging("scanner")
	slog.Info("starting", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}

	cfg, err := config.LoadScannerConfig()
	if err != nil {
		slog.Error("load scanner config", "error", err)
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

	publisher, err := bus.NewPublisher(b)
	if err != nil {
		slog.Error("open publisher", "error", err)
		return
	}
	defer publisher.Close()

	svc, err := scanner.New(store, publisher, scanner.Config{
		MediaRoots:      cfg.MediaRoots,
		TargetLanguages: cfg.TargetLanguages,
		SyncInterval:    cfg.SyncInterval,
		DebounceWindow:  cfg.DebounceWindow,
	})
	if err != nil {
		slog.Error("build scanner service", "error", err)
		return
	}
	if err := svc.Start(ctx); err != nil {
		slog.Error("start scanner service", "error", err)
		return
	}
	defer svc.Stop()

	server := scanner.NewServer(svc)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server}
	go func() {
		slog.Info("scanner http surface listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("scanner http server", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("scanner shutting down")
	_ = httpServer.Shutdown(context.Background())
}
