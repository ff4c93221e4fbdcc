package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	chainstore "github.com/lmoreno/railguard/internal/adapters/secrets/chain"
	sessionstore "github.com/lmoreno/railguard/internal/adapters/session/toml"
	"github.com/lmoreno/railguard/internal/application"
	"github.com/lmoreno/railguard/internal/config"
	"github.com/lmoreno/railguard/internal/ports"
)

type app struct {
	cfg      *config.Config
	log      *slog.Logger
	sessions ports.SessionStore
	secrets  ports.SecretStore
	runState *application.RunState
	clock    ports.Clock
	now      func() time.Time
}

func wireApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := setupLogger(cfg.LogLevel)
	clock := ports.SystemClock{}

	secretStore, err := chainstore.NewEnvFirstWithFileFallback(cfg.Storage.SecretDir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		sessions: sessionstore.NewStore(cfg.Storage.SessionDir, clock, log),
		secrets:  secretStore,
		runState: &application.RunState{},
		clock:    clock,
		now:      time.Now,
	}, nil
}

// setupLogger keeps debug output human-readable; everything else logs JSON
// for collection.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if lvl == slog.LevelDebug {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
