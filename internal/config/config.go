// Package config loads service configuration from the environment.
package config

import "os"

// Common holds settings shared by both binaries.
type Common struct {
	// Port the HTTP listener binds to.
	Port string

	// Env is the deployment environment name.
	Env string

	// ProjectID is the Google Cloud project.
	ProjectID string

	// CredentialsFile, when set, points at a service account key. When
	// empty, application default credentials are used.
	CredentialsFile string

	// OTLPEndpoint is the OTLP trace collector address.
	OTLPEndpoint string

	// OTELEnabled turns trace export on.
	OTELEnabled bool

	OneSignal OneSignal
}

// OneSignal holds the alternate provider's credentials. The provider is
// disabled when AppID or RESTKey is empty.
type OneSignal struct {
	AppID   string
	RESTKey string
	BaseURL string
}

// Worker holds worker-specific settings on top of Common.
type Worker struct {
	Common

	// Subscription is the Pub/Sub subscription delivering event envelopes.
	Subscription string
}

// FromEnv creates a Common config from environment variables.
func FromEnv() Common {
	return Common{
		Port:            getEnvOrDefault("APP_PORT", "8080"),
		Env:             getEnvOrDefault("APP_ENV", "development"),
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		OTLPEndpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OneSignal: OneSignal{
			AppID:   os.Getenv("ONESIGNAL_APP_ID"),
			RESTKey: os.Getenv("ONESIGNAL_REST_KEY"),
			BaseURL: os.Getenv("ONESIGNAL_BASE_URL"),
		},
	}
}

// WorkerFromEnv creates a Worker config from environment variables.
func WorkerFromEnv() Worker {
	return Worker{
		Common:       FromEnv(),
		Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "notification-events"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
