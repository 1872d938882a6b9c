// Command manager runs the request intake and status-query HTTP surface,
// and the subtitle.requested consumer that turns new requests into
// download tasks.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/manager"
	"github.com/codeready-toolchain/subtitlebus/pkg/models"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

const managerQueue = "subtitle.manager"

func main() {
	config.InitLogging("manager")
	slog.Info("starting", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}

	cfg, err := config.LoadManagerConfig()
	if err != nil {
		slog.Error("load manager config", "error", err)
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

	svc := manager.New(store, publisher)

	consumer := bus.NewConsumer(b, bus.QueueSpec{Name: managerQueue, Bindings: bus.ManagerBindings})
	consumer.Start(ctx, func(ctx context.Context, body []byte) error {
		var ev models.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			slog.Error("manager: malformed subtitle.requested envelope, dropping", "error", err)
			return nil
		}
		return svc.HandleSubtitleRequested(ctx, ev)
	})
	defer consumer.Stop()

	server := manager.NewServer(svc, store, manager.ServerConfig{
		Consumer:   consumer,
		Queues:     b,
		ScannerURL: cfg.ScannerURL,
	})
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server}
	go func() {
		slog.Info("manager http surface listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("manager http server", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("manager shutting down")
	_ = httpServer.Shutdown(context.Background())
}
