package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/anirudhraja/frpc/logging"
	"github.com/anirudhraja/frpc/registry"
	"github.com/anirudhraja/frpc/wire"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// SchemaConfig lists the .proto sources method signatures are loaded from.
type SchemaConfig struct {
	ProtoDirs []string `toml:"protoDirs" yaml:"protoDirs"` // import search path
	Files     []string `toml:"files" yaml:"files"`         // files or directories to load
}

// Config aggregates codec, logging and schema settings.
type Config struct {
	Codec   wire.Config    `toml:"codec" yaml:"codec"`
	Logging logging.Config `toml:"logging" yaml:"logging"`
	Schema  SchemaConfig   `toml:"schema" yaml:"schema"`
}

// Load reads a .toml, .yaml or .yml file from the provided path.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Codec.MaxDepth < 0 {
		return fmt.Errorf("codec.maxDepth must not be negative")
	}
	if cfg.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	switch cfg.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console, got %q", cfg.Logging.Encoding)
	}
	if len(cfg.Schema.ProtoDirs) == 0 {
		cfg.Schema.ProtoDirs = []string{"."}
	}
	return nil
}

// Apply installs the codec defaults and the process logger.
func (cfg *Config) Apply() error {
	if err := logging.Configure(cfg.Logging); err != nil {
		return err
	}
	wire.SetConfig(cfg.Codec)
	return nil
}

// Registry builds a registry over the configured proto directories and loads
// every configured schema file into it.
func (cfg *Config) Registry() (*registry.Registry, error) {
	reg := registry.NewRegistry(cfg.Schema.ProtoDirs)
	for _, file := range cfg.Schema.Files {
		if err := reg.LoadSchema(file); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
