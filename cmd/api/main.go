package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/alertavecinal/alerta-api/internal/config"
	"github.com/alertavecinal/alerta-api/internal/domain/report"
	"github.com/alertavecinal/alerta-api/internal/domain/user"
	"github.com/alertavecinal/alerta-api/internal/middleware"
	"github.com/alertavecinal/alerta-api/internal/pkg/database"
	"github.com/alertavecinal/alerta-api/internal/pkg/jwt"
	"github.com/alertavecinal/alerta-api/internal/pkg/logger"
	"github.com/alertavecinal/alerta-api/internal/pkg/remote"
	"github.com/alertavecinal/alerta-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting alerta-api")

	ctx := context.Background()

	// Local cache database
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure cache schema")
	}

	// Redis (optional, cross-instance subscription fan-out)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	// Remote store
	fsClient, err := remote.NewFirestore(ctx, cfg.FirestoreProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer remote.CloseFirestore(fsClient)

	// Report domain wiring
	remoteStore := report.NewFirestoreStore(fsClient)
	cache := report.NewCache(db)
	hub := report.NewHub(cache, redisClient)
	go hub.Run()
	defer hub.Shutdown()

	syncEngine := report.NewSyncEngine(remoteStore, cache, hub)
	reportService := report.NewService(remoteStore, cache, syncEngine, hub)

	userRepo := user.NewRepository(fsClient)
	reportHandler := report.NewHandler(reportService, userRepo)
	liveHandler := report.NewLiveHandler(reportService)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	auth := middleware.Auth(jwtService)

	// Initial pull so the cache is warm before traffic arrives. A cold
	// start with the remote store down still serves whatever the cache
	// already holds.
	if _, err := syncEngine.Pull(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial pull failed, serving from existing cache")
	}

	// Periodic background pull
	pullCtx, stopPull := context.WithCancel(ctx)
	defer stopPull()
	go runPullLoop(pullCtx, syncEngine, cfg.SyncInterval)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/reports", report.Routes(reportHandler, liveHandler, auth))
		r.Mount("/moderation", report.ModerationRoutes(reportHandler, auth))
		r.Mount("/admin", report.AdminRoutes(reportHandler, auth))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// runPullLoop refreshes the local cache on a fixed interval until ctx is
// cancelled. Failed pulls are logged and retried on the next tick.
func runPullLoop(ctx context.Context, engine *report.SyncEngine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.Pull(ctx); err != nil {
				log.Error().Err(err).Msg("Background pull failed")
			}
		}
	}
}
