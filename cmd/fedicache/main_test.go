// ABOUTME: Tests for the fedicache maintenance binary
// ABOUTME: Covers config path resolution and the identities listing against a seeded store

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389/fedicache/internal/store"
)

// writeTestConfig writes a minimal config into dir and points
// FEDICACHE_CONFIG at it for the duration of the test.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	identityPath := filepath.Join(dir, "identity.db")
	raw := fmt.Sprintf("database:\n  identity_path: %s\n  content_dir: %s\n", identityPath, dir)
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("FEDICACHE_CONFIG", configPath)
	return identityPath
}

func seedIdentity(t *testing.T, path string, identity *store.Identity) {
	t.Helper()
	ctx := context.Background()
	identities, err := store.NewIdentityStore(ctx, path)
	if err != nil {
		t.Fatalf("opening identity store: %v", err)
	}
	defer identities.Close()
	if err := identities.SaveIdentity(ctx, identity); err != nil {
		t.Fatalf("saving identity: %v", err)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("FEDICACHE_CONFIG", "/tmp/override.yaml")

	if got := getConfigPath(); got != "/tmp/override.yaml" {
		t.Errorf("getConfigPath = %q, want /tmp/override.yaml", got)
	}
}

func TestGetConfigPath_XDG(t *testing.T) {
	t.Setenv("FEDICACHE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	want := filepath.Join("/xdg", "fedicache", "config.yaml")
	if got := getConfigPath(); got != want {
		t.Errorf("getConfigPath = %q, want %q", got, want)
	}
}

func TestRunIdentities_ListsSeededIdentities(t *testing.T) {
	identityPath := writeTestConfig(t, t.TempDir())
	seedIdentity(t, identityPath, &store.Identity{
		ID:          "id-1",
		AccountURL:  "https://example.social/@alice",
		Pending:     true,
		LastUsedAt:  time.Now().UTC(),
		InstanceURI: "https://example.social",
	})
	seedIdentity(t, identityPath, &store.Identity{
		ID:            "id-2",
		AccountURL:    "https://other.social/@bob",
		Authenticated: true,
		LastUsedAt:    time.Now().UTC(),
	})

	if err := runIdentities(context.Background()); err != nil {
		t.Fatalf("runIdentities failed: %v", err)
	}
}

func TestRunIdentities_EmptyStore(t *testing.T) {
	writeTestConfig(t, t.TempDir())

	if err := runIdentities(context.Background()); err != nil {
		t.Fatalf("runIdentities failed: %v", err)
	}
}

func TestRunMigrate_OpensEveryStore(t *testing.T) {
	dir := t.TempDir()
	identityPath := writeTestConfig(t, dir)
	seedIdentity(t, identityPath, &store.Identity{
		ID:         "id-1",
		AccountURL: "https://example.social/@alice",
		LastUsedAt: time.Now().UTC(),
	})

	if err := runMigrate(context.Background()); err != nil {
		t.Fatalf("runMigrate failed: %v", err)
	}

	if _, err := os.Stat(store.ContentDBPath(dir, "id-1")); err != nil {
		t.Errorf("content database not created: %v", err)
	}
}
