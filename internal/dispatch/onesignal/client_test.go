package onesignal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/dispatch/onesignal"
	"github.com/famlink/notifier/internal/provider/resilience"
)

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "Basic test-rest-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-app-id", body["app_id"])
		assert.Equal(t, []interface{}{"p1", "p2"}, body["include_player_ids"])
		assert.Equal(t, map[string]interface{}{"en": "Appel entrant"}, body["headings"])
		assert.Equal(t, map[string]interface{}{"type": "call"}, body["data"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "ntf_123",
			"recipients": 2,
		})
	}))
	defer server.Close()

	client := onesignal.NewClient(onesignal.ClientConfig{
		AppID:      "test-app-id",
		RESTKey:    "test-rest-key",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("test")),
	})

	err := client.Send(context.Background(), []string{"p1", "p2"}, dispatch.Payload{
		Title: "Appel entrant",
		Body:  "Alice vous appelle",
		Data:  map[string]string{"type": "call"},
	})
	require.NoError(t, err)
}

func TestClient_Send_RejectedWithoutRecipients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "",
			"recipients": 0,
			"errors":     []string{"All included players are not subscribed"},
		})
	}))
	defer server.Close()

	client := onesignal.NewClient(onesignal.ClientConfig{
		AppID:      "test-app-id",
		RESTKey:    "test-rest-key",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("test")),
	})

	err := client.Send(context.Background(), []string{"p1"}, dispatch.Payload{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "rejected by provider")
}

func TestClient_Send_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := onesignal.NewClient(onesignal.ClientConfig{
		AppID:      "test-app-id",
		RESTKey:    "bad-key",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("test")),
	})

	err := client.Send(context.Background(), []string{"p1"}, dispatch.Payload{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "status code: 403")
}

func TestClient_Configured(t *testing.T) {
	assert.False(t, onesignal.NewClient(onesignal.ClientConfig{}).Configured())
	assert.False(t, onesignal.NewClient(onesignal.ClientConfig{AppID: "a"}).Configured())
	assert.True(t, onesignal.NewClient(onesignal.ClientConfig{AppID: "a", RESTKey: "k"}).Configured())
}
