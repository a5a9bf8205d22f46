package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aceprep/backend/internal/api"
	"github.com/aceprep/backend/internal/generator"
	"github.com/aceprep/backend/internal/infrastructure/config"
	"github.com/aceprep/backend/internal/llm"
	"github.com/aceprep/backend/internal/platform/logger"
	"github.com/aceprep/backend/internal/service"
	"github.com/aceprep/backend/internal/store"
	"github.com/aceprep/backend/internal/tutor"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Dependencies ────────────────────────────────────────────────
	blobs, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open profile store", "driver", cfg.StoreDriver, "error", err)
	}
	defer blobs.Close()

	profiles := store.NewProfileStore(blobs, cfg.ProfileKey, log)
	if _, err := profiles.Load(ctx); err != nil {
		log.Warn("could not read stored profile, sessions are held in memory until it is readable", "error", err)
	}

	gen, tut, err := buildProviders(cfg)
	if err != nil {
		log.Fatal("failed to set up question source", "error", err)
	}

	svcCfg := service.DefaultConfig()
	svcCfg.Session.FeedbackTimeout = cfg.FeedbackTimeout
	svcCfg.GenerationTimeout = cfg.GenerationTimeout
	svcCfg.Workers = cfg.GenerationWorkers

	practice := service.NewPracticeService(gen, tut, profiles, log, svcCfg)
	defer practice.Close()

	handler := api.NewHandler(practice, log)

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "address", cfg.ServerAddress, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.BlobStore, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLite(cfg.SQLitePath)
	case "redis":
		return store.NewRedis(ctx, cfg.RedisAddr, "aceprep:")
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// buildProviders picks the question source and the tutor. A question bank
// path switches to offline mode with stored explanations as feedback.
func buildProviders(cfg *config.Config) (generator.Generator, tutor.Tutor, error) {
	if cfg.QuestionBankPath != "" {
		bank, err := generator.LoadBank(cfg.QuestionBankPath)
		if err != nil {
			return nil, nil, err
		}
		return bank, tutor.StaticTutor{}, nil
	}

	client := llm.NewClient(cfg.LLMURL)
	return generator.NewLLMGenerator(client, cfg.LLMModel), tutor.NewLLMTutor(client, cfg.LLMFeedbackModel), nil
}
