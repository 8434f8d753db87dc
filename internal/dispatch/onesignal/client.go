// Package onesignal implements the player-id push provider on the OneSignal
// REST API.
package onesignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/provider/resilience"
)

const (
	// ProviderName identifies this push provider.
	ProviderName = "onesignal"

	// DefaultBaseURL is the OneSignal API base URL.
	DefaultBaseURL = "https://onesignal.com/api/v1"
)

// ClientConfig holds configuration for the OneSignal client.
type ClientConfig struct {
	// AppID is the OneSignal application id (required).
	AppID string

	// RESTKey is the REST API key used for Basic authorization (required).
	RESTKey string

	// BaseURL is the API base URL (optional, defaults to OneSignal).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a OneSignal REST API client.
type Client struct {
	appID      string
	restKey    string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OneSignal client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		appID:      cfg.AppID,
		restKey:    cfg.RESTKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether the app-id/key pair is present. An
// unconfigured client must not be wired into a dispatcher.
func (c *Client) Configured() bool {
	return c.appID != "" && c.restKey != ""
}

// Send submits one notification addressed to the given player ids. The
// OneSignal response carries no per-player failure mapping, so this path is
// fire-and-forget: a 2xx with recipients counts as delivered.
func (c *Client) Send(ctx context.Context, playerIDs []string, payload dispatch.Payload) error {
	reqBody := notificationRequest{
		AppID:            c.appID,
		IncludePlayerIDs: playerIDs,
		Headings:         localized{EN: payload.Title},
		Contents:         localized{EN: payload.Body},
		Data:             payload.Data,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+c.restKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var osResp notificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&osResp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(osResp.Errors) > 0 && osResp.Recipients == 0 {
		return fmt.Errorf("rejected by provider: %v", osResp.Errors)
	}

	c.logger.Debug().
		Str("notification_id", osResp.ID).
		Int("recipients", osResp.Recipients).
		Msg("onesignal notification accepted")
	return nil
}

// OneSignal API request/response structures.

type localized struct {
	EN string `json:"en"`
}

type notificationRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         localized         `json:"headings"`
	Contents         localized         `json:"contents"`
	Data             map[string]string `json:"data,omitempty"`
}

type notificationResponse struct {
	ID         string   `json:"id"`
	Recipients int      `json:"recipients"`
	Errors     []string `json:"errors"`
}

// Ensure Client implements the provider interface.
var _ dispatch.PlayerProvider = (*Client)(nil)
