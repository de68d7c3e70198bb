// Command server runs the dealer-assist HTTP API: conversational queries over
// tyre sales data, order placement for sales reps, and the Twilio WhatsApp
// webhook.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wheely/go-dealer-assist/internal/config"
	httpapi "github.com/wheely/go-dealer-assist/internal/http"
	"github.com/wheely/go-dealer-assist/internal/observability"
	"github.com/wheely/go-dealer-assist/internal/oracle"
	"github.com/wheely/go-dealer-assist/internal/repo"
	"github.com/wheely/go-dealer-assist/internal/sysutil"
)

var version = "dev"

func main() {
	// Missing .env is fine in containers; real config comes from the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	chat := oracle.NewChatClient(cfg.Oracle)
	embed := oracle.NewEmbeddingClient(cfg.Oracle)

	// Warm the entity vocabularies so the first question already gets fuzzy
	// correction. A failure only degrades correction, so start anyway.
	cache := httpapi.NewEntityCache(db)
	if err := cache.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("entity cache warm-up failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:    db,
		Chat:  chat,
		Embed: embed,
		Cache: cache,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
