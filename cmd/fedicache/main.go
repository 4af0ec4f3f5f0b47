// ABOUTME: Entry point for the fedicache maintenance binary
// ABOUTME: Runs migrations and inspects cached identities and content databases

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/fedicache/internal/config"
	"github.com/2389/fedicache/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  __          _ _                _
 / _| ___  __| (_) ___ __ _  ___| |__   ___
| |_ / _ \/ _' | |/ __/ _' |/ __| '_ \ / _ \
|  _|  __/ (_| | | (_| (_| | (__| | | |  __/
|_|  \___|\__,_|_|\___\__,_|\___|_| |_|\___|
`

// getConfigPath returns the path to the fedicache config file.
// Priority: FEDICACHE_CONFIG env var > XDG_CONFIG_HOME/fedicache/config.yaml > ~/.config/fedicache/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FEDICACHE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "fedicache", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: fedicache <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  migrate      Apply pending migrations to all databases")
		fmt.Println("  identities   List cached identities")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx)
	case "identities":
		err = runIdentities(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("migrating databases",
		"config", configPath,
		"identity_path", cfg.Database.IdentityPath,
		"content_dir", cfg.Database.ContentDir,
	)

	identities, err := store.NewIdentityStore(ctx, cfg.Database.IdentityPath)
	if err != nil {
		return fmt.Errorf("opening identity store: %w", err)
	}
	defer identities.Close()

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("identity store: %s\n", cfg.Database.IdentityPath)

	all, err := identities.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	for _, identity := range all {
		path := store.ContentDBPath(cfg.Database.ContentDir, identity.ID)
		content, err := store.NewContentStore(ctx, path)
		if err != nil {
			return fmt.Errorf("opening content store for %s: %w", identity.ID, err)
		}
		content.Close()

		green.Print("    ▶ ")
		fmt.Printf("content store:  %s\n", path)
	}

	fmt.Println()
	logger.Info("migrations complete", "identities", len(all))
	return nil
}

func runIdentities(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	identities, err := store.NewIdentityStore(ctx, cfg.Database.IdentityPath)
	if err != nil {
		return fmt.Errorf("opening identity store: %w", err)
	}
	defer identities.Close()

	all, err := identities.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No cached identities.")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	for _, identity := range all {
		state := "pending"
		if identity.Authenticated {
			state = "authenticated"
		}
		fmt.Printf("%s  %s", identity.ID, identity.AccountURL)
		gray.Printf("  [%s]", state)
		if identity.InstanceURI != "" {
			gray.Printf("  %s", identity.InstanceURI)
		}
		fmt.Println()
	}

	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
