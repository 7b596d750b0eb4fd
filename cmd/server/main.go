// Pepper - Therapy Chat Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"pepper/internal/api"
	"pepper/internal/auth"
	"pepper/internal/chat"
	"pepper/internal/config"
	"pepper/internal/domain"
	"pepper/internal/engine"
	"pepper/internal/middleware"
	"pepper/internal/speech"
	"pepper/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	systemPrompt := loadSystemPrompt(cfg.SystemPromptPath)

	// Initialize services.
	eng := engine.NewOpenAIClient(cfg.OpenAI, logger)
	spc := speech.NewOpenAIClient(cfg.OpenAI, logger)

	manager := chat.NewManager(systemPrompt)
	ledger := chat.NewLedger(repo, cfg.SessionListLimit, logger)
	persist := chat.NewPersistence(repo, logger)
	orchestrator := chat.NewOrchestrator(ledger, persist, eng, spc, logger)

	authService := auth.NewService(repo, cfg.JWTSecret, cfg.TokenTTL)

	// Initialize handlers.
	handler := api.NewHandler(repo, authService, manager, ledger, orchestrator, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	r.Post("/api/auth/signup", handler.Signup)
	r.Post("/api/auth/login", handler.Login)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret)))

		r.Post("/api/logout", handler.Logout)

		// Child chat surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleChild))

			r.Post("/api/chat", handler.SendMessage)
			r.Post("/api/chat/audio", handler.SendAudio)
			r.Get("/api/chat/audio", handler.FetchAudio)
			r.Get("/api/chat/transcript", handler.Transcript)
			r.Put("/api/settings/tts", handler.SetTTS)
			r.Get("/api/sessions", handler.ListSessions)
			r.Post("/api/sessions/new", handler.NewSession)
			r.Post("/api/sessions/{sessionID}/switch", handler.SwitchSession)

			r.Get("/ws/chat", handler.ChatSocket)
		})

		// Staff review surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleStaff))

			r.Get("/api/staff/children", handler.ListChildren)
			r.Get("/api/staff/children/{userID}/sessions", handler.ChildSessions)
			r.Get("/api/staff/sessions/{sessionID}/messages", handler.SessionMessages)
			r.Delete("/api/staff/sessions/{sessionID}", handler.DeleteSession)
		})
	})

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket and long engine calls need unbounded writes
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// loadSystemPrompt reads the instruction file, falling back to the built-in
// prompt when the file is missing.
func loadSystemPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("System prompt file not found, using default", "path", path, "error", err)
		return chat.DefaultSystemPrompt
	}
	slog.Info("System prompt loaded", "path", path, "bytes", len(data))
	return string(data)
}
