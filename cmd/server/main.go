package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/JuanGomePer/chatgpt2025/internal/chat"
	"github.com/JuanGomePer/chatgpt2025/internal/completion"
	"github.com/JuanGomePer/chatgpt2025/internal/config"
	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/httpserver"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
	"github.com/JuanGomePer/chatgpt2025/internal/store/bolt"
	"github.com/JuanGomePer/chatgpt2025/internal/store/sqlite"
	"github.com/JuanGomePer/chatgpt2025/internal/ws"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.Debug {
		log = log.Level(zerolog.InfoLevel)
	}

	// Conversation store and user repository, backend per config
	var (
		chatStore domain.ChatStore
		userRepo  domain.UserRepository
		closeDB   func() error
	)
	switch cfg.StoreBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("failed to create data dir")
		}
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite database")
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		chatStore = sqlite.NewChatStore(db)
		userRepo = sqlite.NewUserRepo(db)
		closeDB = db.Close
	default:
		db, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open bolt database")
		}
		chatStore = bolt.NewChatStore(db)
		userRepo = bolt.NewUserRepo(db)
		closeDB = db.Close
	}
	defer closeDB()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	// Identity session and per-user conversation managers
	idsvc := identity.NewService(userRepo, tokenSvc, passwordHasher, log)
	registry := chat.NewRegistry(chatStore, idsvc, log)

	// Completion client
	completer := completion.NewClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey, log)

	// WebSocket hub: every manager change is pushed to that user's sockets
	hub := ws.NewHub()
	registry.SetManagerHook(func(uid string, m *chat.Manager) {
		m.Subscribe(func(snap chat.Snapshot) {
			hub.BroadcastToUser(uid, ws.StateEvent(snap))
		})
	})
	idsvc.Subscribe(func(uid string, ident *domain.Identity) {
		if ident == nil {
			hub.CloseUser(uid)
		}
	})

	// Build HTTP router
	router := httpserver.NewRouter(cfg, idsvc, registry, completer, hub, tokenSvc, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
