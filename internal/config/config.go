package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	// Server
	Port      string
	StaticDir string

	// LLM provider
	Provider       string
	GroqAPIKey     string
	GroqBaseURL    string
	GeminiAPIKey   string
	ConcurrentReqs int

	// Routing
	Routing         Routing
	ClassifyEnabled bool
	ClassifyTimeout time.Duration
	ChatTimeout     time.Duration

	// Conversation history
	HistoryStore      string
	HistoryMaxEntries int
	RedisURL          string
	DatabaseURL       string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Throttling
	ChatRatePerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGroq))
	if provider != ProviderGroq && provider != ProviderGemini {
		panic(fmt.Sprintf("unsupported LLM_PROVIDER %q", provider))
	}

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "3000"),
		StaticDir:         getEnvOrDefault("STATIC_DIR", "./frontend"),
		Provider:          provider,
		GroqBaseURL:       getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ConcurrentReqs:    getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		ClassifyEnabled:   getEnvAsBoolOrDefault("CLASSIFY_ENABLED", true),
		ClassifyTimeout:   getEnvAsDurationOrDefault("CLASSIFY_TIMEOUT", 15*time.Second),
		ChatTimeout:       getEnvAsDurationOrDefault("CHAT_TIMEOUT", 60*time.Second),
		HistoryStore:      strings.ToLower(getEnvOrDefault("HISTORY_STORE", StoreMemory)),
		HistoryMaxEntries: getEnvAsIntOrDefault("HISTORY_MAX_ENTRIES", 0),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionTTL:        getEnvAsDurationOrDefault("SESSION_TTL", 24*time.Hour),
		ChatRatePerMin:    getEnvAsIntOrDefault("CHAT_RATE_PER_MINUTE", 30),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "*"),
	}

	// Only the selected provider's key is required
	switch provider {
	case ProviderGroq:
		cfg.GroqAPIKey = mustGetEnv("GROQ_API_KEY")
	case ProviderGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	}

	switch cfg.HistoryStore {
	case StoreMemory:
	case StoreRedis:
		cfg.RedisURL = mustGetEnv("REDIS_URL")
	case StorePostgres:
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	default:
		panic(fmt.Sprintf("unsupported HISTORY_STORE %q", cfg.HistoryStore))
	}

	routing := DefaultRouting(provider)
	if path := os.Getenv("ROUTING_FILE"); path != "" {
		loaded, err := LoadRouting(path, routing)
		if err != nil {
			panic(fmt.Sprintf("failed to load routing file: %v", err))
		}
		routing = loaded
	}
	routing.DefaultModel = getEnvOrDefault("DEFAULT_MODEL", routing.DefaultModel)
	routing.ReasoningModel = getEnvOrDefault("REASONING_MODEL", routing.ReasoningModel)
	routing.DefaultPersona = getEnvOrDefault("DEFAULT_PERSONA", routing.DefaultPersona)
	cfg.Routing = routing

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
