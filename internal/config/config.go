// Package config loads the optional withdef YAML config file.
//
//	db: withdef.db
//	addr: 127.0.0.1:8080
//	timeout: 5s
//	highlight: "github.com/a/b@main/-/def/Foo"
//
// Every key is optional. Command-line flags override file values.
package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/withdef/internal/ir"
)

// Defaults used when neither the file nor a flag sets a value.
const (
	DefaultDB      = "withdef.db"
	DefaultAddr    = "127.0.0.1:8080"
	DefaultTimeout = 5 * time.Second
)

// Config holds settings shared by the CLI commands.
type Config struct {
	// DB is the path of the SQLite definition index.
	DB string `yaml:"db"`

	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`

	// Timeout bounds how long a resolve waits for a record to settle.
	Timeout time.Duration `yaml:"timeout"`

	// Highlight is a def spec placed in the highlighted slot at startup.
	Highlight string `yaml:"highlight,omitempty"`
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		DB:      DefaultDB,
		Addr:    DefaultAddr,
		Timeout: DefaultTimeout,
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	// An empty file is a valid config.
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every set value is usable.
func (c Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("addr %q: %w", c.Addr, err)
	}
	if c.Highlight != "" {
		if _, ok := ir.ParseDefSpec(c.Highlight); !ok {
			return fmt.Errorf("highlight %q is not a def spec", c.Highlight)
		}
	}
	return nil
}
