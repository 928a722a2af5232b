// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/config"
	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/events"
	"github.com/civicpulse/engagement-platform/internal/geocode"
	"github.com/civicpulse/engagement-platform/internal/handler"
	"github.com/civicpulse/engagement-platform/internal/middleware"
	"github.com/civicpulse/engagement-platform/internal/session"
	"github.com/civicpulse/engagement-platform/internal/store"
	"github.com/civicpulse/engagement-platform/internal/whatsapp"
	"github.com/civicpulse/engagement-platform/pkg/logger"
	"github.com/civicpulse/engagement-platform/pkg/tracing"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded, using system environment")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "engagement-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS for the audit event stream. The audit trail is
	// best-effort, so a missing or unreachable broker degrades to a no-op
	// auditor instead of refusing to start.
	var auditor dialogue.Auditor = dialogue.NopAuditor{}
	var eventsClient *events.Client
	if cfg.NATSURL != "" {
		eventsClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, audit events disabled", zap.Error(err))
		} else {
			defer eventsClient.Close()
			publisher := events.NewPublisher(eventsClient, log)
			if err := publisher.EnsureStream(ctx); err != nil {
				log.Error("failed to ensure audit stream", zap.Error(err))
				os.Exit(1)
			}
			auditor = publisher
		}
	}

	// Initialize the record store and load the voter roll
	recordStore := store.NewMemoryStore()
	if cfg.VoterCSVFile != "" {
		loaded, err := recordStore.ImportVotersCSV(cfg.VoterCSVFile)
		if err != nil {
			log.Error("voter roll import failed", zap.Error(err), zap.String("file", cfg.VoterCSVFile))
			os.Exit(1)
		}
		log.Info("voter roll loaded", zap.Int("records", loaded))
	} else {
		log.Warn("no voter CSV configured, voter roll is empty")
	}

	// Initialize collaborators
	geocoder := geocode.New(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, log)
	sender := whatsapp.NewSender(whatsapp.Config{
		APIURL:        cfg.WhatsAppAPIURL,
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
	}, log)

	// Initialize the session store and dialogue engine
	sessions := session.NewStore(cfg.SessionTimeout)
	engine := dialogue.NewEngine(sessions, recordStore, geocoder, auditor, dialogue.Config{
		AssetBaseURL: cfg.AssetBaseURL,
	}, log)

	// Periodic sweep so abandoned sessions do not accumulate
	if cfg.SessionSweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SessionSweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				if evicted := sessions.Sweep(); evicted > 0 {
					log.Debug("idle sessions evicted", zap.Int("count", evicted))
				}
			}
		}()
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient)
	webhookHandler := handler.NewWebhookHandler(engine, sender, cfg.WhatsAppVerifyToken, log)
	chatHandler := handler.NewChatHandler(engine, log)
	adminHandler := handler.NewAdminHandler(recordStore, sender, auditor, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// WhatsApp webhook (authenticated by the provider's verify token)
	r.Get("/webhook", webhookHandler.Verify)
	r.Post("/webhook", webhookHandler.Receive)
	r.Get("/api/webhook/whatsapp", webhookHandler.Verify)
	r.Post("/api/webhook/whatsapp", webhookHandler.Receive)

	// Public API routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/api/chat", chatHandler.Chat)
		r.Get("/api/status/{ref}", adminHandler.Status)
	})

	// Admin API routes with authentication
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/api/voters", adminHandler.ListVoters)
		r.Post("/api/verify-voter", adminHandler.VerifyVoter)

		r.Get("/api/grievances", adminHandler.ListGrievances)
		r.Patch("/api/grievances/{id}", adminHandler.UpdateGrievance)

		r.Get("/api/suggestions", adminHandler.ListSuggestions)
		r.Patch("/api/suggestions/{id}", adminHandler.UpdateSuggestion)

		r.Get("/api/volunteers", adminHandler.ListVolunteers)
		r.Patch("/api/volunteers/{id}", adminHandler.UpdateVolunteer)

		r.Get("/api/subscribers", adminHandler.ListSubscribers)

		r.Get("/api/admin/dashboard", adminHandler.Dashboard)
		r.Post("/api/admin/notify", adminHandler.Notify)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
