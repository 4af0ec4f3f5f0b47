// ABOUTME: Tests for HTTP transport construction
// ABOUTME: Covers timeout wiring and User-Agent stamping on outgoing requests

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/fedicache/internal/config"
)

func TestNewHTTPTransport_StampsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewHTTPTransport(config.NetworkConfig{
		RequestTimeout: 5 * time.Second,
		UserAgent:      "fedicache-test/1.0",
	})

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "fedicache-test/1.0", got)
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestNewHTTPTransport_EmptyUserAgentUsesDefaultTransport(t *testing.T) {
	client := NewHTTPTransport(config.NetworkConfig{RequestTimeout: time.Second})

	assert.Equal(t, http.DefaultTransport, client.Transport)
	assert.Equal(t, time.Second, client.Timeout)
}

func TestUserAgentTransport_DoesNotMutateOriginalRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := NewHTTPTransport(config.NetworkConfig{
		RequestTimeout: time.Second,
		UserAgent:      "fedicache-test/1.0",
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("User-Agent"))
}
