// Package config loads brepconv settings from a TOML file. Values not set
// in the file keep their defaults; command line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/brep/pkg/entity/sexp"
	"github.com/chazu/brep/pkg/tessellate"
	"github.com/chazu/brep/pkg/topology"
)

// FileName is the config file looked up in the working directory when no
// path is given.
const FileName = "brepconv.toml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds every tunable of an import.
type Config struct {
	// Tolerance is the maximum chord deviation of the mesh.
	Tolerance float64 `toml:"tolerance"`
	// Epsilon is the geometric tolerance for topology checks.
	Epsilon float64 `toml:"epsilon"`
	// Workers bounds concurrency. Zero uses every CPU.
	Workers int `toml:"workers"`
	// Partial keeps valid solids when others fail validation.
	Partial bool `toml:"partial"`
	// Weld is the distance under which mesh vertices are merged.
	Weld float64 `toml:"weld"`

	Decode Decode `toml:"decode"`
	Output Output `toml:"output"`
}

// Decode configures document decoding.
type Decode struct {
	// Format forces a wire format ("json" or "sexp"). Empty sniffs it.
	Format string `toml:"format"`
	// Timeout bounds evaluation of Lisp documents, as a Go duration.
	Timeout string `toml:"timeout"`
}

// Output configures what convert writes.
type Output struct {
	// Format is one of stl, obj or json.
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tolerance: tessellate.DefaultTolerance,
		Epsilon:   topology.DefaultEpsilon,
		Workers:   runtime.GOMAXPROCS(0),
		Weld:      topology.DefaultEpsilon,
		Decode:    Decode{Timeout: sexp.DefaultTimeout.String()},
		Output:    Output{Format: "stl"},
	}
}

// Load reads the file at path over the defaults. An empty path reads
// FileName if it exists and otherwise returns the defaults.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected so typos do not go unnoticed.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	positive := func(name string, v float64) error {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, name, v)
		}
		return nil
	}
	if err := positive("tolerance", c.Tolerance); err != nil {
		return err
	}
	if err := positive("epsilon", c.Epsilon); err != nil {
		return err
	}
	if err := positive("weld", c.Weld); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}
	switch c.Decode.Format {
	case "", "json", "sexp":
	default:
		return fmt.Errorf("%w: unknown decode.format %q", ErrInvalid, c.Decode.Format)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	switch c.Output.Format {
	case "stl", "obj", "json":
	default:
		return fmt.Errorf("%w: unknown output.format %q", ErrInvalid, c.Output.Format)
	}
	return nil
}

// Timeout parses Decode.Timeout. Empty means the sexp default.
func (c Config) Timeout() (time.Duration, error) {
	if c.Decode.Timeout == "" {
		return sexp.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Decode.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: decode.timeout %q is not a positive duration", ErrInvalid, c.Decode.Timeout)
	}
	return d, nil
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}
