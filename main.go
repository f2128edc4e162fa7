package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talkvia/talkvia-be/internal/api"
	"github.com/talkvia/talkvia-be/internal/config"
	"github.com/talkvia/talkvia-be/internal/database"
	"github.com/talkvia/talkvia-be/internal/logger"
	"github.com/talkvia/talkvia-be/internal/mailer"
	"github.com/talkvia/talkvia-be/internal/services"
	"github.com/talkvia/talkvia-be/internal/streamsync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.IsProduction())

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up external collaborators
	smtpMailer, err := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}

	directory := streamsync.New(cfg.StreamAPIKey, cfg.StreamAPISecret, cfg.StreamBaseURL)

	// Set up services
	eventService := services.NewEventService(db)
	authService := services.NewAuthService(db, smtpMailer, directory, eventService, cfg.AvatarBaseURL, cfg.ExternalCallTimeout)

	// Set up router
	router := api.NewRouter(cfg, authService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
