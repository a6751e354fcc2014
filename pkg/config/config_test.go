package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "stl", cfg.Output.Format)
	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
tolerance = 0.5
partial = true

[decode]
format = "sexp"
timeout = "250ms"

[output]
format = "obj"
`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Tolerance)
	assert.True(t, cfg.Partial)
	assert.Equal(t, Default().Epsilon, cfg.Epsilon)
	assert.Equal(t, "sexp", cfg.Decode.Format)
	assert.Equal(t, "obj", cfg.Output.Format)
	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `tolerance = `},
		{"unknown key", `tolerence = 0.1`},
		{"zero tolerance", `tolerance = 0.0`},
		{"negative epsilon", `epsilon = -1.0`},
		{"negative workers", `workers = -2`},
		{"decode format", "[decode]\nformat = \"step\""},
		{"timeout", "[decode]\ntimeout = \"soon\""},
		{"output format", "[output]\nformat = \"gltf\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("weld = 0.001\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Weld)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Tolerance = 0.125
	cfg.Output.Format = "json"

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	back, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
