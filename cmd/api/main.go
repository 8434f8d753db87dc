// Package main provides the entrypoint for the notifier API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/famlink/notifier/internal/admin"
	"github.com/famlink/notifier/internal/api"
	"github.com/famlink/notifier/internal/auth"
	"github.com/famlink/notifier/internal/config"
	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/dispatch/fcm"
	"github.com/famlink/notifier/internal/dispatch/onesignal"
	"github.com/famlink/notifier/internal/fanout"
	"github.com/famlink/notifier/internal/reconcile"
	"github.com/famlink/notifier/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "notifier-api"

	// Local development overrides; absent in production.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting notifier API")

	cfg := config.FromEnv()
	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTELEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize Firebase clients
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase app")
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase auth")
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firestore")
	}
	defer fsClient.Close()
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase messaging")
	}
	log.Info().Str("project", cfg.ProjectID).Msg("firebase clients initialized")

	// Initialize auth service
	authService := auth.NewService(auth.ServiceConfig{
		Client: authClient,
		Logger: log,
	})

	// Initialize the fan-out pipeline
	store := directory.NewFirestoreStore(fsClient)
	resolver := directory.NewResolver(directory.ResolverConfig{
		Store:  store,
		Logger: log,
	})

	fcmClient := fcm.NewClient(fcm.ClientConfig{
		Messaging: msgClient,
		Logger:    log,
	})

	var players dispatch.PlayerProvider
	if cfg.OneSignal.AppID != "" && cfg.OneSignal.RESTKey != "" {
		players = onesignal.NewClient(onesignal.ClientConfig{
			AppID:   cfg.OneSignal.AppID,
			RESTKey: cfg.OneSignal.RESTKey,
			BaseURL: cfg.OneSignal.BaseURL,
			Logger:  log,
		})
		log.Info().Msg("onesignal provider enabled")
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		Multicast: fcmClient,
		Players:   players,
		Logger:    log,
	})
	reconciler := reconcile.NewReconciler(reconcile.ReconcilerConfig{
		Store:  store,
		Logger: log,
	})
	fanoutService := fanout.NewService(fanout.ServiceConfig{
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Reconciler: reconciler,
		Source:     fanout.NewFirestoreSource(fsClient),
		Logger:     log,
	})
	log.Info().Msg("fan-out service initialized")

	// Initialize admin service
	adminService := admin.NewService(admin.ServiceConfig{
		Store:    admin.NewFirestoreRequestStore(fsClient),
		Identity: authService,
		Logger:   log,
	})
	log.Info().Msg("admin service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Verifier:      authService,
		FanoutService: fanoutService,
		AdminService:  adminService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
