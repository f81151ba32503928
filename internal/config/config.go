// Package config loads the server and client settings.
//
// A YAML file overlays the built-in defaults; the result is validated against
// an embedded CUE schema. Command-line flags are applied by the caller, which
// validates again afterwards.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid wraps every schema violation.
var ErrInvalid = errors.New("invalid config")

// Config holds the settings of both process roles.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
}

// ServerConfig configures `cardstack serve`.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	Secret     string `yaml:"secret"`
	Key        int    `yaml:"key"`
	MaxPlayers int    `yaml:"max_players"`
	Stacking   string `yaml:"stacking"`
	Journal    string `yaml:"journal"` // empty disables the journal
}

// ClientConfig configures `cardstack play`.
type ClientConfig struct {
	ServerURL    string        `yaml:"server_url"`
	Secret       string        `yaml:"secret"`
	Key          int           `yaml:"key"`
	HandSize     int           `yaml:"hand_size"`
	RenderPeriod time.Duration `yaml:"render_period"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:       ":50000",
			Secret:     "abracadabra",
			Key:        5445,
			MaxPlayers: 4,
			Stacking:   "adjacent",
		},
		Client: ClientConfig{
			ServerURL:    "http://localhost:50000",
			Secret:       "abracadabra",
			Key:          5445,
			HandSize:     5,
			RenderPeriod: 500 * time.Millisecond,
			IdleTimeout:  8 * time.Second,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
//
// Unknown fields are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c.schemaView()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}

// schemaView is cfg as the schema sees it: snake_case keys, durations in
// nanoseconds.
func (c Config) schemaView() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":        c.Server.Addr,
			"secret":      c.Server.Secret,
			"key":         c.Server.Key,
			"max_players": c.Server.MaxPlayers,
			"stacking":    c.Server.Stacking,
			"journal":     c.Server.Journal,
		},
		"client": map[string]any{
			"server_url":    c.Client.ServerURL,
			"secret":        c.Client.Secret,
			"key":           c.Client.Key,
			"hand_size":     c.Client.HandSize,
			"render_period": int64(c.Client.RenderPeriod),
			"idle_timeout":  int64(c.Client.IdleTimeout),
		},
	}
}
