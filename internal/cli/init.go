// Package cli holds the start-up steps shared by the fincoach binaries.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"fincoach/internal/backend"
	"fincoach/internal/config"
	applog "fincoach/internal/log"
)

// LoadConfig reads .env when present, loads the environment configuration
// and builds the process logger from it. Invalid configuration exits.
func LoadConfig(component string) (*config.Config, *applog.Logger) {
	// Errors are ignored: the file is optional in production.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := NewLogger(cfg, component)
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// NewLogger honours LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, component string) *applog.Logger {
	return applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
}

// OpenStore creates the configured storage backend or exits.
func OpenStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create storage backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// Close runs the backend cleanup and logs a failure.
func Close(result *backend.BackendResult, logger *applog.Logger) {
	if err := result.Cleanup(); err != nil {
		logger.Error("Storage cleanup failed", applog.FieldError, err)
	}
}
