// Package api defines the upstream client contract and snapshot types.
//
// # Overview
//
// Client is the interface the services call to reach an instance's REST API.
// Snapshot types mirror the wire shapes: nested, nullable, and decoupled
// from the flattened rows the store persists.
//
// NewHTTPTransport builds the http.Client an implementation performs its
// requests with, applying the configured timeout and User-Agent.
//
// MockClient is a configurable test double that records calls in order.
package api
