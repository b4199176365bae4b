// Package config loads the YAML configuration shared by the storage tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/storagebridge/internal/host"
	"github.com/born-ml/storagebridge/internal/parallel"
	"github.com/born-ml/storagebridge/internal/storage"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig       `yaml:"log"`
	Host     host.Config     `yaml:"host"`
	Storage  StorageConfig   `yaml:"storage"`
	Parallel parallel.Config `yaml:"parallel"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string   `yaml:"level"`        // debug, info, warn, error
	Format      string   `yaml:"format"`       // json or console
	Development bool     `yaml:"development"`  // stack traces on warn, panics on DPanic
	OutputPaths []string `yaml:"output_paths"` // defaults to stderr
}

// StorageConfig configures storage allocation.
type StorageConfig struct {
	Alignment int    `yaml:"alignment"`  // CPU allocator capacity alignment
	SharedDir string `yaml:"shared_dir"` // directory for ShareFilename; empty means os.TempDir
	Resizable bool   `yaml:"resizable"`  // whether new storages may be resized
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Host: host.DefaultConfig(),
		Storage: StorageConfig{
			Alignment: storage.DefaultAlignment,
			Resizable: true,
		},
		Parallel: defaultParallel(),
	}
}

// defaultParallel keeps fills and copies below 64 KiB on one goroutine.
func defaultParallel() parallel.Config {
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 1 << 16
	return cfg
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: Config path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var err error
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, lerr))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format))
	}
	if herr := c.Host.Validate(); herr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: host: %w", ErrInvalidConfig, herr))
	}
	if a := c.Storage.Alignment; a <= 0 || a&(a-1) != 0 {
		err = multierr.Append(err, fmt.Errorf("%w: storage.alignment %d is not a power of two", ErrInvalidConfig, a))
	}
	if c.Parallel.NumWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: parallel.num_workers %d", ErrInvalidConfig, c.Parallel.NumWorkers))
	}
	if c.Parallel.MinChunkSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: parallel.min_chunk_size %d", ErrInvalidConfig, c.Parallel.MinChunkSize))
	}
	return err
}

// Build creates the zap logger described by c.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}

	var zc zap.Config
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Format
	if c.Format == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if len(c.OutputPaths) > 0 {
		zc.OutputPaths = c.OutputPaths
	}
	return zc.Build()
}

// StorageOptions returns the storage options implied by the configuration.
func (c Config) StorageOptions() []storage.Option {
	return []storage.Option{
		storage.WithAllocator(storage.NewCPUAllocator(c.Storage.Alignment)),
		storage.WithResizable(c.Storage.Resizable),
		storage.WithParallel(c.Parallel),
	}
}
