package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bassins/bassins-api/internal/api"
	"github.com/bassins/bassins-api/internal/config"
	"github.com/bassins/bassins-api/internal/db"
	"github.com/bassins/bassins-api/internal/logger"
	"github.com/bassins/bassins-api/internal/middleware"
	"github.com/bassins/bassins-api/internal/production"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.DatabaseURL, log.Logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close(conn)

	if err := db.EnsurePostGIS(conn); err != nil {
		log.WithError(err).Fatal("Failed to enable postgis extension")
	}
	if err := production.Migrate(conn); err != nil {
		log.WithError(err).Fatal("Failed to migrate productions")
	}

	handler := api.New(production.NewStore(conn), log, cfg.ScanTimeout)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(limiter.Middleware)
	r.Get("/", RootHandler)

	r.Mount("/", handler.SetupRoutes(cfg.AdminTokenHash))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server stopped")
	}
}
