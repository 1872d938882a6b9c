// Command translator runs the fixed pool of subtitle.translation
// workers: the chunked, checkpointed translation engine.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/subtitlebus/pkg/bus"
	"github.com/codeready-toolchain/subtitlebus/pkg/config"
	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/llm"
	"github.com/codeready-toolchain/subtitlebus/pkg/translator"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

func main() {
	config.InitLogging("translator")
	slog.Info("starting", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}

	cfg, err := config.LoadTranslatorConfig()
	if err != nil {
		slog.Error("load translator config", "error", err)
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

	provider, err := resolveProvider(cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		slog.Error("resolve llm provider", "error", err)
		return
	}

	svc := translator.New(store, publisher, provider, cfg.ChunkSize, cfg.CheckpointDir, cfg.ResultBaseURL)

	pool := translator.NewPool(b, cfg.WorkerCount)
	pool.Start(ctx, svc)
	defer pool.Stop()

	slog.Info("translator pool started", "workers", cfg.WorkerCount, "provider", cfg.LLMProvider)
	<-ctx.Done()
	slog.Info("translator shutting down")
}

// resolveProvider registers every known provider and resolves name from
// the registry, mirroring the register-by-name / resolve pattern used
// for the rest of this codebase's pluggable clients.
func resolveProvider(name, apiKey, model string, timeout time.Duration) (llm.Provider, error) {
	registry := llm.NewRegistry()
	registry.Register("fake", &llm.Fake{})
	registry.Register("openai", llm.NewOpenAIProvider(apiKey, model, timeout))
	if err := registry.SetDefault(name); err != nil {
		return nil, err
	}
	return registry.Default()
}
