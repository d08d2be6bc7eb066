// Package config loads and validates searchmix configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	serr "github.com/searchmix/searchmix/internal/errors"
	"github.com/searchmix/searchmix/internal/store"
)

// DefaultDBPath is where the index lives unless configured otherwise.
const DefaultDBPath = "./db/searchmix.db"

// Config is the complete searchmix configuration.
type Config struct {
	// DBPath is the SQLite index file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// IncludeCodeBlocks makes fenced/indented code searchable body text.
	IncludeCodeBlocks bool `yaml:"include_code_blocks" json:"include_code_blocks"`

	// Weights are the per-field BM25 ranking weights.
	Weights store.Weights `yaml:"weights" json:"weights"`

	// Snippets configures extraction defaults.
	Snippets SnippetsConfig `yaml:"snippets" json:"snippets"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SnippetsConfig holds snippet extraction defaults.
type SnippetsConfig struct {
	// Length is the context window size in bytes.
	Length int `yaml:"length" json:"length"`
	// PerDocument caps snippets emitted per matched document.
	PerDocument int `yaml:"per_document" json:"per_document"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
	// FilePath is the log file; empty logs to stderr only.
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBPath:  DefaultDBPath,
		Weights: store.DefaultWeights(),
		Snippets: SnippetsConfig{
			Length:      200,
			PerDocument: 3,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file, merging it over the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, serr.ConfigInvalid("cannot read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, serr.ConfigInvalid("cannot parse config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return serr.ConfigInvalid("db_path must not be empty", nil)
	}
	for name, w := range map[string]float64{
		"title": c.Weights.Title, "h1": c.Weights.H1, "h2": c.Weights.H2,
		"h3": c.Weights.H3, "h4": c.Weights.H4, "h5": c.Weights.H5,
		"h6": c.Weights.H6, "body": c.Weights.Body,
	} {
		if w < 0 {
			return serr.ConfigInvalid(fmt.Sprintf("weight %s must not be negative", name), nil)
		}
	}
	if c.Snippets.Length < 0 || c.Snippets.PerDocument < 0 {
		return serr.ConfigInvalid("snippet settings must not be negative", nil)
	}
	return nil
}
