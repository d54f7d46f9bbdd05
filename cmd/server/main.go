// SpeakUp GD - group discussion practice server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/speakup-gd/internal/api"
	"github.com/ashureev/speakup-gd/internal/config"
	"github.com/ashureev/speakup-gd/internal/convlog"
	"github.com/ashureev/speakup-gd/internal/discussion"
	"github.com/ashureev/speakup-gd/internal/evaluation"
	"github.com/ashureev/speakup-gd/internal/events"
	"github.com/ashureev/speakup-gd/internal/identity"
	"github.com/ashureev/speakup-gd/internal/llm"
	"github.com/ashureev/speakup-gd/internal/middleware"
	"github.com/ashureev/speakup-gd/internal/rpc"
	"github.com/ashureev/speakup-gd/internal/store"
	"github.com/ashureev/speakup-gd/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := setupLogging(cfg.LogLevel)

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"llm_provider", cfg.LLM.Provider,
		"storage", cfg.Storage.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize result store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Result store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Result store connected", "backend", cfg.Storage.Backend)

	participants, err := config.LoadParticipants(cfg.Discussion.PersonasFile)
	if err != nil {
		slog.Error("Failed to load participants", "error", err)
		os.Exit(1)
	}

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	rng := discussion.NewRand(cfg.Discussion.RandomSeed)
	svc := discussion.NewService(discussion.Config{
		Participants:    participants,
		DefaultDuration: cfg.Discussion.DefaultDuration,
		EndWait:         cfg.Discussion.EndWait,
		BotTimeout:      cfg.LLM.BotTimeout,
		ClassifyTimeout: cfg.LLM.ClassifyTimeout,
	}, client, evaluation.New(client, cfg.LLM.EvalTimeout, logger), rng, logger)
	svc.SetRecorder(repo)

	hub := api.NewStreamHub(originPatterns(cfg), logger)
	svc.AddObserver(hub)
	svc.SetCleanupCallback(hub.CloseSession)

	conversationLogger, err := convlog.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conversationLogger.Close() }()
	svc.AddObserver(convlog.Observer(conversationLogger))

	if cfg.NATSURL != "" {
		publisher, err := events.Connect(ctx, cfg.NATSURL, logger)
		if err != nil {
			slog.Warn("Failed to connect to NATS, session events will not be published", "error", err)
		} else {
			defer func() { _ = publisher.Close() }()
			svc.AddObserver(publisher)
			slog.Info("Publishing session events", "stream", events.StreamName)
		}
	}

	svc.StartSweeper(ctx, cfg.Discussion.SweepInterval, cfg.Discussion.SessionTTL, cfg.Discussion.ResultRetention)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartEviction(ctx)

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, repo, hub, logger)
	discussionHandler := api.NewDiscussionHandler(baseHandler, limiter.Limit)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Public routes.
	r.Get("/health", api.Heartbeat)
	r.Get("/api/health", baseHandler.Health)
	discussionHandler.RegisterRoutes(r)

	// Serve embedded practice page (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	// Note: the websocket stream requires no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	var healthSrv *rpc.HealthServer
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		healthSrv = rpc.NewHealthServer(repo, 15*time.Second, logger)
		healthSrv.Watch(ctx)
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

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

	if healthSrv != nil {
		healthSrv.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}

// originPatterns turns the frontend URL into a websocket host pattern.
func originPatterns(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	u, err := url.Parse(cfg.FrontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
