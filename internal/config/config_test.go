package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
}

func TestLoadParsesProjectAndRunTables(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"

[run]
entry = "start.bl"
verbose = true
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Project.Name != "demo" || cfg.Project.Version != "0.1.0" {
		t.Errorf("unexpected project table: %+v", cfg.Project)
	}
	if cfg.Run.Entry != "start.bl" || !cfg.Run.Verbose {
		t.Errorf("unexpected run table: %+v", cfg.Run)
	}
}

func TestLoadDefaultsEntryWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Run.Entry != "main.bl" {
		t.Errorf("expected default entry main.bl, got %q", cfg.Run.Entry)
	}
}

func TestLoadDefaultsLimitsDiagnosticsAndOutputWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Limits.MaxCallDepth != 1024 {
		t.Errorf("expected default max_call_depth 1024, got %d", cfg.Limits.MaxCallDepth)
	}
	if !cfg.Diagnostics.WarnMixedKeywords {
		t.Errorf("expected warn_mixed_keywords to default true")
	}
	if cfg.Output.Sink != "stdout" {
		t.Errorf("expected default output sink stdout, got %q", cfg.Output.Sink)
	}
}

func TestLoadOverridesLimitsDiagnosticsAndOutput(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[limits]
max_call_depth = 64

[diagnostics]
warn_mixed_keywords = false

[output]
sink = "stderr"
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Limits.MaxCallDepth != 64 {
		t.Errorf("expected overridden max_call_depth 64, got %d", cfg.Limits.MaxCallDepth)
	}
	if cfg.Diagnostics.WarnMixedKeywords {
		t.Errorf("expected warn_mixed_keywords to be overridden to false")
	}
	if cfg.Output.Sink != "stderr" {
		t.Errorf("expected overridden output sink stderr, got %q", cfg.Output.Sink)
	}
}

func TestOutputOpenCreatesFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	out := Output{Sink: path}
	w, closeFn, err := out.Open()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(data) != "hi" {
		t.Fatalf("got %q, want %q", data, "hi")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error loading a directory with no bilex.toml")
	}
}

func TestFindAndLoadWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "parent"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.Project.Name != "parent" {
		t.Fatalf("expected to find the parent manifest, got %+v", cfg)
	}
}

func TestFindAndLoadReturnsNilWhenNoManifestExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
}
