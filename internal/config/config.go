// Package config handles bilex.toml project configuration: source layout,
// default CLI behavior, the VM's call-depth ceiling, mixed-keyword
// diagnostics, and output-sink selection for cmd/bilex.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a bilex.toml project configuration.
type Config struct {
	Project     Project     `toml:"project"`
	Run         Run         `toml:"run"`
	Limits      Limits      `toml:"limits"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Output      Output      `toml:"output"`

	// Dir is the directory containing the bilex.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Run configures default behavior for `bilex run`.
type Run struct {
	Entry   string `toml:"entry"`
	Verbose bool   `toml:"verbose"`
}

// Limits bounds VM execution. MaxCallDepth stands in for a gas/step limit:
// the VM has no cooperative scheduler to rate-limit against, but unbounded
// bilex recursion still needs a ceiling on the VM's frame stack.
type Limits struct {
	MaxCallDepth int `toml:"max_call_depth"`
}

// Diagnostics configures non-fatal CLI warnings, separate from the
// compile/run error contract.
type Diagnostics struct {
	// WarnMixedKeywords logs a warning when a source file's keywords mix
	// English and Russian spellings (e.g. `fun` alongside `если`).
	WarnMixedKeywords bool `toml:"warn_mixed_keywords"`
}

// Output selects where `bilex run` sends program output. Sink is "stdout"
// (default), "stderr", or a file path.
type Output struct {
	Sink string `toml:"sink"`
}

// Open resolves Sink to a writer plus a close func to defer. "stdout" and
// "stderr" return a no-op closer; anything else is created as a file.
func (o Output) Open() (io.Writer, func() error, error) {
	switch o.Sink {
	case "", "stdout":
		return os.Stdout, func() error { return nil }, nil
	case "stderr":
		return os.Stderr, func() error { return nil }, nil
	default:
		f, err := os.Create(o.Sink)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open output sink %s: %w", o.Sink, err)
		}
		return f, f.Close, nil
	}
}

const fileName = "bilex.toml"

// Default returns the configuration used when no bilex.toml is found.
func Default() Config {
	return Config{
		Run:         Run{Entry: "main.bl"},
		Limits:      Limits{MaxCallDepth: 1024},
		Diagnostics: Diagnostics{WarnMixedKeywords: true},
		Output:      Output{Sink: "stdout"},
	}
}

// Load parses a bilex.toml file from dir. Fields absent from the file keep
// their Default() value; flags (at the CLI layer) override whatever Load
// returns.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &cfg, nil
}

// FindAndLoad walks up from startDir looking for a bilex.toml file. It
// returns nil (no error) when no manifest is found anywhere above startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
