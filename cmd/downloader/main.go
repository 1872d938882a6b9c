// Command downloader runs the fixed pool of subtitle.download workers:
// catalogue search, direct download, fallback search, and the degraded
// translation-only path.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/catalogue"
	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/downloader"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

func main() {
	config.InitLogging("downloader")
	slog.Info("starting", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}

	cfg, err := config.LoadDownloaderConfig()
	if err != nil {
		slog.Error("load downloader config", "error", err)
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

	cat := catalogue.NewHTTPClient(cfg.CatalogueBaseURL, cfg.CatalogueAPIKey, cfg.CatalogueTimeout)

	svc := downloader.New(store, publisher, cat, cfg.TranslationEnabled, cfg.FallbackLanguage)

	pool := downloader.NewPool(b, cfg.WorkerCount)
	pool.Start(ctx, svc)
	defer pool.Stop()

	slog.Info("downloader pool started", "workers", cfg.WorkerCount)
	<-ctx.Done()
	slog.Info("downloader shutting down")
}
