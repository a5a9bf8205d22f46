package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/generator"
	"github.com/aceprep/backend/internal/platform/logger"
	"github.com/aceprep/backend/internal/service"
	"github.com/aceprep/backend/internal/simulation"
	"github.com/aceprep/backend/internal/store"
	"github.com/aceprep/backend/internal/tutor"
)

func main() {
	_ = godotenv.Load()

	bankPath := flag.String("bank", envOr("QUESTION_BANK_PATH", "data/questions.yaml"), "YAML question bank")
	categoryName := flag.String("category", "mock", "category slug or name (reading, vocab, grammar, math, mock)")
	strategyName := flag.String("strategy", "random", "answer strategy: perfect, first or random")
	dbPath := flag.String("db", envOr("SQLITE_PATH", "aceprep.db"), "sqlite profile database, empty for an in-memory profile")
	logMode := flag.String("log", envOr("LOG_MODE", "dev"), "log mode (dev or prod)")
	flag.Parse()

	c, err := category.Parse(*categoryName)
	if err != nil {
		fail(err)
	}
	strategy, err := simulation.ParseStrategy(*strategyName)
	if err != nil {
		fail(err)
	}

	log, err := logger.New(*logMode)
	if err != nil {
		fail(err)
	}
	defer log.Sync()

	bank, err := generator.LoadBank(*bankPath)
	if err != nil {
		fail(err)
	}

	var blobs store.BlobStore = store.NewMemory()
	if *dbPath != "" {
		db, err := store.NewSQLite(*dbPath)
		if err != nil {
			fail(err)
		}
		blobs = db
	}
	defer blobs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles := store.NewProfileStore(blobs, envOr("PROFILE_KEY", store.DefaultProfileKey), log)
	if _, err := profiles.Load(ctx); err != nil {
		log.Warn("could not read stored profile", "error", err)
	}

	svc := service.NewPracticeService(bank, tutor.StaticTutor{}, profiles, log, service.DefaultConfig())
	defer svc.Close()

	if _, err := simulation.Run(ctx, svc, c, strategy, os.Stdout); err != nil {
		log.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func envOr(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
	os.Exit(1)
}
