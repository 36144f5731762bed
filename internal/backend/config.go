package backend

import (
	"errors"
	"fmt"
	"strings"

	"fincoach/internal/config"
)

type Config struct {
	Type         BackendType
	SQLiteDBPath string
}

// FromAppConfig selects the backend named in the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend))),
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}
	if !cfg.Type.valid() {
		return Config{}, fmt.Errorf("unknown data backend %q", appConfig.DataBackend)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.valid() {
		return fmt.Errorf("unknown data backend %q", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("sqlite backend needs a database path")
	}
	return nil
}
