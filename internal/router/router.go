package router

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatrouter-backend/internal/handlers"
	"chatrouter-backend/internal/middleware"
	"chatrouter-backend/internal/websocket"
)

type Options struct {
	StaticDir   string
	FrontendURL string
	// ChatRatePerMin of 0 disables throttling.
	ChatRatePerMin int
}

func New(
	sessionAuth *middleware.SessionAuth,
	chatHandler *handlers.ChatHandler,
	funFactHandler *handlers.FunFactHandler,
	sessionHandler *handlers.SessionHandler,
	wsHub *websocket.Hub,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(opts.FrontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Static pages ────
	r.Get("/funfact", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(opts.StaticDir, "funfact.html"))
	})
	r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))

	// ──── Chat Routes ────
	r.Group(func(r chi.Router) {
		if opts.ChatRatePerMin > 0 {
			limiter := middleware.NewRateLimiter(opts.ChatRatePerMin)
			r.Use(limiter.Middleware)
		}

		r.Post("/session", sessionHandler.Create)
		r.Post("/funfact", funFactHandler.Generate)

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Post("/chat", chatHandler.Chat)
			r.Post("/reset", chatHandler.Reset)

			// ──── WebSocket ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
