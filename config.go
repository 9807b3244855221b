package pdchain

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the .pdchain.yaml configuration file.
type Config struct {
	// Connector joins two conditions when a row leaves it empty.
	Connector string `yaml:"connector,omitempty"`

	// Parenthesize wraps each comparison of a mask in parentheses.
	Parenthesize bool `yaml:"parenthesize,omitempty"`

	// Output is the default output format (plain, json, explain).
	Output string `yaml:"output,omitempty"`

	Metadata MetadataConfig `yaml:"metadata,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty"`
	Watch    WatchConfig    `yaml:"watch,omitempty"`
}

// MetadataConfig selects where variable metadata comes from.
// At most one of File and SQLite should be set.
type MetadataConfig struct {
	// File is a YAML metadata file.
	File string `yaml:"file,omitempty"`

	// SQLite is a database path; each table is a variable.
	SQLite string `yaml:"sqlite,omitempty"`
}

// ServeConfig holds settings for the serve command.
type ServeConfig struct {
	// Addr is the HTTP listen address. Empty means stdio JSON-RPC only.
	Addr string `yaml:"addr,omitempty"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".pdchain.yaml", ".pdchain.yml", "pdchain.yaml", "pdchain.yml"}

// BuilderOptions returns the builder options implied by the config.
func (c *Config) BuilderOptions() []BuilderOption {
	if c == nil {
		return nil
	}

	var opts []BuilderOption
	if c.Connector != "" {
		opts = append(opts, WithDefaultConnector(c.Connector))
	}

	if c.Parenthesize {
		opts = append(opts, WithParenthesizedConditions())
	}

	return opts
}

// LoadConfig finds and loads the nearest config walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path. Relative metadata
// paths are resolved against the config file's directory.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	cfg.Metadata.File = resolveFrom(dir, cfg.Metadata.File)
	cfg.Metadata.SQLite = resolveFrom(dir, cfg.Metadata.SQLite)

	return &cfg, nil
}

func resolveFrom(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(dir, p)
}
