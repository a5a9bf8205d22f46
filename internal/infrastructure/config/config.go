package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration
	LogMode         string // "prod" for JSON logs, anything else for development output

	// Profile storage
	StoreDriver string // "sqlite", "redis" or "memory"
	SQLitePath  string
	RedisAddr   string
	ProfileKey  string

	// LLM question generation and tutor feedback
	LLMURL           string // OpenAI-compatible endpoint, e.g. "http://localhost:1234"
	LLMModel         string // model used for question generation
	LLMFeedbackModel string // smaller, faster model for tutor feedback

	// Offline mode: when set, questions come from this YAML bank and
	// feedback from the stored explanations.
	QuestionBankPath string

	GenerationTimeout time.Duration
	FeedbackTimeout   time.Duration
	GenerationWorkers int

	CORSOrigins []string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	model := getenvDefault("LLM_MODEL", "qwen3-8b")
	return &Config{
		ServerAddress:     mustGetenv("SERVER_ADDRESS"),
		ShutdownTimeout:   mustGetDuration("SHUTDOWN_TIMEOUT"),
		LogMode:           getenvDefault("LOG_MODE", "dev"),
		StoreDriver:       strings.ToLower(getenvDefault("STORE_DRIVER", "sqlite")),
		SQLitePath:        getenvDefault("SQLITE_PATH", "aceprep.db"),
		RedisAddr:         getenvDefault("REDIS_ADDR", "localhost:6379"),
		ProfileKey:        getenvDefault("PROFILE_KEY", "mcvsd-stats"),
		LLMURL:            getenvDefault("LLM_URL", "http://localhost:1234"),
		LLMModel:          model,
		LLMFeedbackModel:  getenvDefault("LLM_FEEDBACK_MODEL", model),
		QuestionBankPath:  os.Getenv("QUESTION_BANK_PATH"),
		GenerationTimeout: getDurationDefault("GENERATION_TIMEOUT", 2*time.Minute),
		FeedbackTimeout:   getDurationDefault("FEEDBACK_TIMEOUT", 30*time.Second),
		GenerationWorkers: getenvInt("GENERATION_WORKERS", 2),
		CORSOrigins:       splitList(getenvDefault("CORS_ORIGINS", "*")),
	}
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func mustGetDuration(k string) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getDurationDefault(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid integer: %v", k, v, err)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
