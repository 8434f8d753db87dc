// Package main provides the entrypoint for the notifier event worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/famlink/notifier/internal/config"
	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/dispatch/fcm"
	"github.com/famlink/notifier/internal/dispatch/onesignal"
	"github.com/famlink/notifier/internal/fanout"
	"github.com/famlink/notifier/internal/reconcile"
	"github.com/famlink/notifier/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "notifier-worker"

	// Local development overrides; absent in production.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting notifier worker")

	cfg := config.WorkerFromEnv()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Firebase clients
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase app")
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

	// Build the fan-out pipeline
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
	normalizer := reconcile.NewNormalizer(reconcile.NormalizerConfig{
		Store:  store,
		Logger: log,
	})

	// Pub/Sub consumer
	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.ProjectID,
		SubscriptionName: cfg.Subscription,
		Fanout:           fanoutService,
		Normalizer:       normalizer,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
	}
	defer handler.Close()

	go func() {
		if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("pubsub receive failed")
		}
	}()

	// Health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
