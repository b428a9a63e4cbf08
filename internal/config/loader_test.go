package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetrieveCount != 10 {
		t.Errorf("retrieve_count = %d, want 10", cfg.RetrieveCount)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
	if cfg.Threads < 1 {
		t.Errorf("threads = %d", cfg.Threads)
	}
}

func TestLoadMissingFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.json"), filepath.Join(dir, "also-nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetrieveCount != 10 {
		t.Errorf("retrieve_count = %d, want default", cfg.RetrieveCount)
	}
}

func TestLoadGlobalOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.json", `{"threads": 3, "log_level": "debug"}`)

	cfg, err := Load(global, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads != 3 {
		t.Errorf("threads = %d, want 3", cfg.Threads)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	// Untouched key keeps its default.
	if cfg.RetrieveCount != 10 {
		t.Errorf("retrieve_count = %d, want 10", cfg.RetrieveCount)
	}
}

func TestLoadProjectOverridesGlobal(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.json", `{"threads": 3, "retrieve_count": 5}`)
	project := writeConfig(t, dir, "project.json", `{"threads": 7}`)

	cfg, err := Load(global, project)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads != 7 {
		t.Errorf("threads = %d, want project value 7", cfg.Threads)
	}
	if cfg.RetrieveCount != 5 {
		t.Errorf("retrieve_count = %d, want global value 5", cfg.RetrieveCount)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	bad := writeConfig(t, dir, "bad.json", `{"threads": `)

	if _, err := Load(bad, ""); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, content string
	}{
		{"zero threads", `{"threads": 0}`},
		{"negative instances", `{"instances": -1}`},
		{"zero retrieve count", `{"retrieve_count": 0}`},
		{"bad log level", `{"log_level": "loud"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, "cfg.json", tt.content)
			if _, err := Load(path, ""); err == nil {
				t.Errorf("expected validation error for %s", tt.content)
			}
		})
	}
}
