package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/pydocgen/internal/model"
)

// isolated returns paths that see no user or project files.
func isolated(t *testing.T) Paths {
	t.Helper()
	return Paths{Dir: t.TempDir(), Home: t.TempDir()}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	v, err := Load(isolated(t))
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, model.Google, cfg.DocStyle())
	assert.Equal(t, model.Inclusion{}, cfg.Inclusion())
	assert.Equal(t, "gemini", cfg.Backend.Provider)
	assert.Equal(t, 4, cfg.Synth.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Synth.RetryBaseDelay)
	assert.Equal(t, time.Minute, cfg.Synth.CallTimeout)
}

func TestPrecedence(t *testing.T) {
	p := isolated(t)
	writeFile(t, filepath.Join(p.Home, ".config", "pydocgen", FileName), `
style = "numpy"
include_private = true

[synth]
concurrency = 2
`)
	writeFile(t, filepath.Join(p.Dir, FileName), `
style = "rest"

[synth]
call_timeout = "15s"
`)
	t.Setenv("PYDOCGEN_SYNTH_CONCURRENCY", "9")

	v, err := Load(p)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, model.ReST, cfg.DocStyle(), "project file overrides user file")
	assert.True(t, cfg.IncludePrivate, "user file overrides defaults")
	assert.Equal(t, 15*time.Second, cfg.Synth.CallTimeout)
	assert.Equal(t, 9, cfg.Synth.Concurrency, "environment overrides files")
}

func TestExplicitFileReplacesProjectFile(t *testing.T) {
	p := isolated(t)
	writeFile(t, filepath.Join(p.Dir, FileName), `style = "rest"`)
	p.File = filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, p.File, `style = "numpy"`)

	v, err := Load(p)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, model.NumPy, cfg.DocStyle())

	p.File = filepath.Join(t.TempDir(), "missing.toml")
	_, err = Load(p)
	require.Error(t, err)
}

func TestAPIKeyFromProviderVariable(t *testing.T) {
	t.Setenv("PYDOCGEN_BACKEND_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "secret")

	v, err := Load(isolated(t))
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.BackendOptions().APIKey)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{"style", "PYDOCGEN_STYLE", "epytext", "unsupported docstring style"},
		{"provider", "PYDOCGEN_BACKEND_PROVIDER", "openai", "unknown backend provider"},
		{"concurrency", "PYDOCGEN_SYNTH_CONCURRENCY", "0", "synth.concurrency"},
		{"attempts", "PYDOCGEN_SYNTH_MAX_ATTEMPTS", "0", "synth.max_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			v, err := Load(isolated(t))
			require.NoError(t, err)
			_, err = Decode(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefault(&buf))
	assert.Contains(t, buf.String(), "# pydocgen configuration.")
	assert.Contains(t, buf.String(), `retry_base_delay = "500ms"`)
	assert.NotContains(t, buf.String(), "api_key")

	p := isolated(t)
	writeFile(t, filepath.Join(p.Dir, FileName), buf.String())
	v, err := Load(p)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	defaults, err := Load(isolated(t))
	require.NoError(t, err)
	want, err := Decode(defaults)
	require.NoError(t, err)
	assert.Equal(t, want, cfg)
}

func TestSynthOptions(t *testing.T) {
	cfg := &Config{Style: "numpy", Improve: true, IncludeMagic: true, Synth: SynthConfig{Concurrency: 3, MaxAttempts: 2}}
	opts := cfg.SynthOptions()
	assert.Equal(t, model.NumPy, opts.Style)
	assert.True(t, opts.Improve)
	assert.Equal(t, model.Inclusion{Magic: true}, opts.Include)
	assert.Equal(t, 3, opts.Concurrency)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "PYDOCGEN_DOTENV_PROBE"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(dir), "missing .env is not an error")

	writeFile(t, filepath.Join(dir, ".env"), key+"=from-dotenv\n")
	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}
