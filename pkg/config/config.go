// Package config loads the user-editable configuration file, resolves the
// application's directories, and manages provider credentials including
// the encrypted secrets file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"parley/pkg/chat/chaterrors"
)

const (
	appDirName     = "parley"
	configFileName = "config.yaml"
)

// Themes the renderer knows about.
var knownThemes = map[string]bool{
	"dark":  true,
	"light": true,
	"mono":  true,
}

// Config is the user-editable configuration. Every field has a usable
// zero/default value so a missing file is not an error.
type Config struct {
	// DefaultModel is used for new conversations when -m is not given.
	// May be the alias "default".
	DefaultModel string `yaml:"default_model"`

	// Includes is the baseline number of exchanges pulled into each
	// request window for fresh conversations.
	Includes int `yaml:"includes"`

	// SystemPrompt seeds a fresh conversation's context with one pinned
	// system message. It is never sent on its own.
	SystemPrompt string `yaml:"system_prompt"`

	// Editor overrides $EDITOR for -e prompt composition.
	Editor string `yaml:"editor"`

	// Theme selects the renderer palette: dark, light, or mono.
	Theme string `yaml:"theme"`

	// Render toggles markdown rendering of replies on terminals.
	Render bool `yaml:"render"`

	// OllamaHost is the local model server address. Empty means the
	// OLLAMA_HOST environment variable, then the standard local port.
	OllamaHost string `yaml:"ollama_host"`

	// MaxTokens caps completion output. Zero means the engine's default
	// output budget.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature, 0 to 2. Zero means the
	// built-in default.
	Temperature float32 `yaml:"temperature"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultModel: "default",
		Includes:     2,
		Theme:        "dark",
		Render:       true,
	}
}

// Dir returns the parley config directory (<UserConfigDir>/parley),
// creating it on demand.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"cannot resolve a config directory for this user")
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			fmt.Sprintf("cannot create config directory %s: %v", dir, err))
	}
	return dir, nil
}

// Path returns the config file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Load reads the config file at path. A missing file yields the defaults;
// a present file is decoded strictly (unknown keys rejected) over the
// defaults and validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			fmt.Sprintf("cannot read config file %s: %v", path, err))
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			fmt.Sprintf("cannot parse config file %s: %v", path, err))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Includes < 0 {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"includes must be >= 0 (got %d)", c.Includes)
	}
	if !knownThemes[c.Theme] {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"unknown theme %q (known: dark, light, mono)", c.Theme)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"temperature must be between 0 and 2 (got %g)", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"max_tokens must be >= 0 (got %d)", c.MaxTokens)
	}
	return nil
}
