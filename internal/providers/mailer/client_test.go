package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postloop/content-pipeline/internal/config"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req emailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "posts@postloop.dev", req.From)
		assert.Equal(t, []string{"user@example.com"}, req.To)
		assert.Equal(t, "Your post is ready", req.Subject)
		assert.Contains(t, req.HTML, "<p>")

		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	client := NewClient(config.MailerConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		From:    "posts@postloop.dev",
	})

	err := client.Send(context.Background(), "user@example.com", "Your post is ready", "<p>hello</p>")
	require.NoError(t, err)
}

func TestSend_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"domain not verified"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(config.MailerConfig{BaseURL: server.URL, APIKey: "test-key", From: "posts@postloop.dev"})
	err := client.Send(context.Background(), "user@example.com", "subject", "<p>x</p>")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "domain not verified")
}

func TestSend_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(config.MailerConfig{BaseURL: server.URL, APIKey: "test-key", From: "posts@postloop.dev"})
	err := client.Send(context.Background(), "user@example.com", "subject", "<p>x</p>")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing email id")
}
