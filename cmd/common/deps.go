// Package common provides shared utilities for command implementations.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/reader/internal/config"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
	"github.com/jonesrussell/north-cloud/reader/internal/reader"
)

// Viper keys bound to the root command's persistent flags.
const (
	KeyConfig   = "config"
	KeyLogLevel = "log_level"
	KeyStorage  = "storage"
)

var (
	// ErrLoggerRequired is returned when CommandDeps.Logger is nil.
	ErrLoggerRequired = errors.New("logger is required")
	// ErrConfigRequired is returned when CommandDeps.Config is nil.
	ErrConfigRequired = errors.New("config is required")
)

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Logger logger.Logger
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads the config file, applies flag overrides and creates the logger.
func NewCommandDeps() (CommandDeps, error) {
	path := viper.GetString(KeyConfig)
	if path == "" {
		path = config.GetConfigPath(config.DefaultPath)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	if viper.IsSet(KeyLogLevel) {
		cfg.Logging.Level = strings.ToLower(viper.GetString(KeyLogLevel))
	}
	if viper.IsSet(KeyStorage) {
		cfg.Storage.Driver = strings.ToLower(viper.GetString(KeyStorage))
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("invalid config: %w", validateErr)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{Logger: log, Config: cfg}
	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}
	return deps, nil
}

// OpenService loads the dependencies and opens the reader service.
// A nil reg keeps metrics private to the service.
func OpenService(ctx context.Context, reg prometheus.Registerer) (*reader.Service, CommandDeps, error) {
	deps, err := NewCommandDeps()
	if err != nil {
		return nil, CommandDeps{}, err
	}

	svc, err := reader.Open(ctx, deps.Config, deps.Logger, reg)
	if err != nil {
		return nil, CommandDeps{}, fmt.Errorf("open reader: %w", err)
	}
	return svc, deps, nil
}

// ParseID parses a UUID argument.
func ParseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}
