package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"chatrouter-backend/internal/config"
	"chatrouter-backend/internal/database"
	"chatrouter-backend/internal/handlers"
	"chatrouter-backend/internal/llm"
	"chatrouter-backend/internal/middleware"
	"chatrouter-backend/internal/repository"
	"chatrouter-backend/internal/router"
	"chatrouter-backend/internal/services"
	"chatrouter-backend/internal/websocket"
	"chatrouter-backend/migrations"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("✗ %v", err)
	}
}

// run owns every resource so deferred closes happen before main exits.
func run() error {
	log.Println("🚀 Starting Chat Router Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Printf("✓ Environment variables loaded (provider: %s, store: %s)", cfg.Provider, cfg.HistoryStore)

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.SessionSecret = secret
		log.Println("⚠ SESSION_SECRET not set, sessions will not survive a restart")
	}

	// ──── Step 2: Initialize Conversation Store ────
	store, redisClient, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// ──── Step 3: Initialize LLM Gateway ────
	var gateway llm.Gateway
	switch cfg.Provider {
	case config.ProviderGemini:
		geminiClient, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("gemini client initialization failed: %w", err)
		}
		defer geminiClient.Close()
		gateway = geminiClient
	default:
		gateway = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqBaseURL)
	}
	gateway = llm.Limit(gateway, cfg.ConcurrentReqs)
	log.Printf("✓ %s gateway initialized (default: %s, reasoning: %s)",
		cfg.Provider, cfg.Routing.DefaultModel, cfg.Routing.ReasoningModel)

	// ──── Initialize Services ────
	routing := cfg.Routing
	classifier := services.NewClassifier(gateway, routing.DefaultModel, routing.ClassifierPrompt, cfg.ClassifyTimeout)
	modelRouter := services.NewModelRouter(routing.DefaultModel, routing.ReasoningModel)
	chatService := services.NewChatService(gateway, classifier, modelRouter, store, services.ChatOptions{
		DefaultPersona:  routing.DefaultPersona,
		ClassifyEnabled: cfg.ClassifyEnabled,
		Timeout:         cfg.ChatTimeout,
	})
	funFactService := services.NewFunFactService(gateway, routing.DefaultModel, routing.FunFactPersona, routing.FunFactPrompt, cfg.ChatTimeout)
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL)

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(chatService)
	funFactHandler := handlers.NewFunFactHandler(funFactService)
	sessionHandler := handlers.NewSessionHandler(sessionAuth)

	// ──── Step 4: Start WebSocket Hub ────
	wsHub := websocket.NewHub(chatService, handlers.ErrorStatus, redisClient)
	log.Println("✓ WebSocket hub started")

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		sessionAuth,
		chatHandler,
		funFactHandler,
		sessionHandler,
		wsHub,
		router.Options{
			StaticDir:      cfg.StaticDir,
			FrontendURL:    cfg.FrontendURL,
			ChatRatePerMin: cfg.ChatRatePerMin,
		},
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// a chat turn may take up to CHAT_TIMEOUT
		WriteTimeout: cfg.ChatTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Chat Router Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  Chat: http://localhost:%s/chat", cfg.Port)
	log.Printf("  WS:   ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// openStore builds the configured conversation store. The returned Redis client
// is nil unless the store is Redis-backed; closeFn releases whatever was opened.
func openStore(ctx context.Context, cfg *config.Config) (services.ConversationStore, *redis.Client, func(), error) {
	switch cfg.HistoryStore {
	case config.StoreRedis:
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Println("✓ Redis connected")
		store := repository.NewConversationRedisRepo(client, cfg.SessionTTL, cfg.HistoryMaxEntries)
		return store, client, func() { client.Close() }, nil

	case config.StorePostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgreSQL connection failed: %w", err)
		}
		log.Println("✓ PostgreSQL connected")

		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := database.RunMigrations(migrateCtx, pool, migrations.FS); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		log.Println("✓ Database migrations applied")
		return repository.NewConversationRepo(pool, cfg.HistoryMaxEntries), nil, pool.Close, nil

	default:
		log.Println("✓ In-memory conversation store ready")
		return repository.NewConversationMemoryRepo(cfg.HistoryMaxEntries), nil, func() {}, nil
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
