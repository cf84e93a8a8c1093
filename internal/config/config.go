// Package config loads pydocgen settings from defaults, TOML files,
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phobologic/pydocgen/internal/backend"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/synth"
)

// FileName is the project configuration file looked up in the working directory.
const FileName = "pydocgen.toml"

// EnvPrefix prefixes every environment override, e.g. PYDOCGEN_BACKEND_MODEL.
const EnvPrefix = "PYDOCGEN"

// Config is the decoded configuration.
type Config struct {
	Style                  string        `mapstructure:"style"`
	Improve                bool          `mapstructure:"improve"`
	IncludePrivate         bool          `mapstructure:"include_private"`
	IncludeMagic           bool          `mapstructure:"include_magic"`
	RequireModuleDocstring bool          `mapstructure:"require_module_docstring"`
	Synth                  SynthConfig   `mapstructure:"synth"`
	Backend                BackendConfig `mapstructure:"backend"`
}

// SynthConfig tunes the synthesizer.
type SynthConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
}

// BackendConfig selects and tunes the generation backend.
type BackendConfig struct {
	Provider  string  `mapstructure:"provider"`
	Model     string  `mapstructure:"model"`
	APIKey    string  `mapstructure:"api_key"`
	RPS       float64 `mapstructure:"rps"`
	Burst     int     `mapstructure:"burst"`
	CacheSize int     `mapstructure:"cache_size"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("style", "google")
	v.SetDefault("improve", false)
	v.SetDefault("include_private", false)
	v.SetDefault("include_magic", false)
	v.SetDefault("require_module_docstring", false)

	v.SetDefault("synth.concurrency", synth.DefaultConcurrency)
	v.SetDefault("synth.max_attempts", synth.DefaultMaxAttempts)
	v.SetDefault("synth.retry_base_delay", synth.DefaultRetryBaseDelay)
	v.SetDefault("synth.call_timeout", synth.DefaultCallTimeout)

	v.SetDefault("backend.provider", "gemini")
	v.SetDefault("backend.model", backend.DefaultGeminiModel)
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.rps", 2.0)
	v.SetDefault("backend.burst", 4)
	v.SetDefault("backend.cache_size", 256)
}

// Paths locates the configuration files. Zero values mean the user's home
// directory and the working directory.
type Paths struct {
	File string // explicit file, replaces the project file
	Dir  string
	Home string
}

// Load builds a viper instance holding every layer except flags, which the
// caller binds afterwards.
func Load(p Paths) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The provider's own variable works too, so one .env serves both tools.
	if err := v.BindEnv("backend.api_key", EnvPrefix+"_BACKEND_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, errors.Wrap(err, "binding api key")
	}

	SetDefaults(v)

	for _, path := range p.files() {
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
	}
	if p.File != "" {
		if _, err := os.Stat(p.File); err != nil {
			return nil, errors.Wrapf(err, "config file %s", p.File)
		}
	}
	return v, nil
}

// files lists existing configuration files from lowest to highest precedence.
func (p Paths) files() []string {
	home := p.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	var paths []string
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "pydocgen", FileName))
	}
	if p.File != "" {
		paths = append(paths, p.File)
	} else {
		dir := p.Dir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		paths = append(paths, filepath.Join(dir, FileName))
	}

	var out []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			out = append(out, path)
		}
	}
	return out
}

func mergeFile(v *viper.Viper, path string) error {
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("toml")
	if err := file.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	if err := v.MergeConfigMap(file.AllSettings()); err != nil {
		return errors.Wrapf(err, "merging config file %s", path)
	}
	return nil
}

// Decode unmarshals and checks the effective configuration.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if _, err := model.ParseStyle(c.Style); err != nil {
		return errors.WithHint(err, "style must be one of google, numpy, rest")
	}
	if !slices.Contains(backend.Providers, c.Backend.Provider) {
		return errors.WithHintf(errors.Newf("unknown backend provider %q", c.Backend.Provider),
			"backend.provider must be one of %s", strings.Join(backend.Providers, ", "))
	}
	switch {
	case c.Synth.Concurrency < 1:
		return errors.Newf("synth.concurrency must be at least 1, got %d", c.Synth.Concurrency)
	case c.Synth.MaxAttempts < 1:
		return errors.Newf("synth.max_attempts must be at least 1, got %d", c.Synth.MaxAttempts)
	case c.Synth.CallTimeout <= 0:
		return errors.Newf("synth.call_timeout must be positive, got %s", c.Synth.CallTimeout)
	case c.Backend.RPS < 0:
		return errors.Newf("backend.rps must not be negative, got %g", c.Backend.RPS)
	}
	return nil
}

// DocStyle returns the parsed docstring style.
func (c *Config) DocStyle() model.Style {
	st, _ := model.ParseStyle(c.Style)
	return st
}

// Inclusion returns the visibility filter.
func (c *Config) Inclusion() model.Inclusion {
	return model.Inclusion{Private: c.IncludePrivate, Magic: c.IncludeMagic}
}

// SynthOptions converts the synth section.
func (c *Config) SynthOptions() synth.Options {
	return synth.Options{
		Style:          c.DocStyle(),
		Improve:        c.Improve,
		Include:        c.Inclusion(),
		Concurrency:    c.Synth.Concurrency,
		MaxAttempts:    c.Synth.MaxAttempts,
		RetryBaseDelay: c.Synth.RetryBaseDelay,
		CallTimeout:    c.Synth.CallTimeout,
	}
}

// BackendOptions converts the backend section.
func (c *Config) BackendOptions() backend.Options {
	return backend.Options{
		Provider:  c.Backend.Provider,
		Model:     c.Backend.Model,
		APIKey:    c.Backend.APIKey,
		RPS:       c.Backend.RPS,
		Burst:     c.Backend.Burst,
		CacheSize: c.Backend.CacheSize,
	}
}

// LoadDotEnv reads KEY=value pairs from dir/.env into the process
// environment. Variables already set win; a missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}

// file is the on-disk shape written by WriteDefault. Durations are kept as
// strings so they read back through viper unchanged.
type file struct {
	Style                  string      `toml:"style"`
	Improve                bool        `toml:"improve"`
	IncludePrivate         bool        `toml:"include_private"`
	IncludeMagic           bool        `toml:"include_magic"`
	RequireModuleDocstring bool        `toml:"require_module_docstring"`
	Synth                  synthFile   `toml:"synth"`
	Backend                backendFile `toml:"backend"`
}

type synthFile struct {
	Concurrency    int    `toml:"concurrency"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryBaseDelay string `toml:"retry_base_delay"`
	CallTimeout    string `toml:"call_timeout"`
}

type backendFile struct {
	Provider  string  `toml:"provider"`
	Model     string  `toml:"model"`
	RPS       float64 `toml:"rps"`
	Burst     int     `toml:"burst"`
	CacheSize int     `toml:"cache_size"`
}

const fileHeader = `# pydocgen configuration.
#
# Every key can be overridden with a PYDOCGEN_ environment variable, e.g.
# PYDOCGEN_STYLE=numpy or PYDOCGEN_SYNTH_CONCURRENCY=8, and by command-line
# flags. The API key is read from GEMINI_API_KEY (or a .env file) and is
# deliberately not stored here.
#
# style: google, numpy or rest
# backend.provider: gemini or skeleton (offline placeholders)

`

// WriteDefault writes a commented configuration file holding the defaults.
func WriteDefault(w io.Writer) error {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return errors.Wrap(err, "decoding defaults")
	}

	f := file{
		Style:                  cfg.Style,
		Improve:                cfg.Improve,
		IncludePrivate:         cfg.IncludePrivate,
		IncludeMagic:           cfg.IncludeMagic,
		RequireModuleDocstring: cfg.RequireModuleDocstring,
		Synth: synthFile{
			Concurrency:    cfg.Synth.Concurrency,
			MaxAttempts:    cfg.Synth.MaxAttempts,
			RetryBaseDelay: cfg.Synth.RetryBaseDelay.String(),
			CallTimeout:    cfg.Synth.CallTimeout.String(),
		},
		Backend: backendFile{
			Provider:  cfg.Backend.Provider,
			Model:     cfg.Backend.Model,
			RPS:       cfg.Backend.RPS,
			Burst:     cfg.Backend.Burst,
			CacheSize: cfg.Backend.CacheSize,
		},
	}
	if _, err := io.WriteString(w, fileHeader); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(f)
}
