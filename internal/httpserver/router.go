package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/chat"
	"github.com/JuanGomePer/chatgpt2025/internal/config"
	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
	"github.com/JuanGomePer/chatgpt2025/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes and middleware.
// Services are built by the caller because the store backend is pluggable.
func NewRouter(
	cfg *config.Config,
	idsvc *identity.Service,
	registry *chat.Registry,
	completer domain.Completer,
	hub *ws.Hub,
	tokens *security.TokenService,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"chatgpt2025 API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(idsvc))
			r.Post("/login", handleLogin(idsvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens, idsvc))

			r.Post("/auth/logout", handleLogout(idsvc))
			r.Get("/auth/me", handleMe())

			r.Get("/state", handleGetState(registry))

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", handleListChats(registry))
				r.Post("/", handleNewChat(registry))
				r.Post("/{chatID}/select", handleSelectChat(registry))
			})

			r.Post("/messages", handleSendMessage(registry, completer))
		})
	})

	// WebSocket endpoint: pushes state snapshots on every change
	r.Get("/ws", ws.MakeHandler(hub, tokens, idsvc, registry, cfg.CORSOrigins, log))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
