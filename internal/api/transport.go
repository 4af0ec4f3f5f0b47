// ABOUTME: HTTP plumbing shared by Client implementations
// ABOUTME: Builds an http.Client honoring the configured timeout and User-Agent

package api

import (
	"net/http"

	"github.com/2389/fedicache/internal/config"
)

// userAgentTransport stamps the configured User-Agent on every request
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// NewHTTPTransport returns the http.Client a Client implementation should
// perform its requests with. The request timeout and User-Agent come from
// the network section of the configuration.
func NewHTTPTransport(cfg config.NetworkConfig) *http.Client {
	base := http.RoundTripper(http.DefaultTransport)
	if cfg.UserAgent != "" {
		base = &userAgentTransport{base: base, userAgent: cfg.UserAgent}
	}
	return &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: base,
	}
}
