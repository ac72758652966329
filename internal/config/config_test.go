package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"providers": {"openai": {"model": "gpt-4o-mini", "api_key": "k"}},
		"interview": {"provider": "openai"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interview.TestUsername != DefaultTestUsername {
		t.Fatalf("test username = %q", cfg.Interview.TestUsername)
	}
	if cfg.Interview.OracleTimeoutSeconds != DefaultOracleTimeout {
		t.Fatalf("oracle timeout = %d", cfg.Interview.OracleTimeoutSeconds)
	}
	if cfg.Interview.MaxOutputTokens != DefaultMaxOutputTokens {
		t.Fatalf("max output tokens = %d", cfg.Interview.MaxOutputTokens)
	}
	if cfg.Transcripts.Backend != "local" {
		t.Fatalf("backend = %q", cfg.Transcripts.Backend)
	}
	// Relative directories resolve against the config file location.
	base := filepath.Dir(path)
	if cfg.Transcripts.TranscriptsDir != filepath.Join(base, "data/transcripts") {
		t.Fatalf("transcripts dir = %q", cfg.Transcripts.TranscriptsDir)
	}
	if cfg.Email.SubjectTemplate != "%s Interview Evaluation" {
		t.Fatalf("subject template = %q", cfg.Email.SubjectTemplate)
	}
}

func TestLoadValidatesProvider(t *testing.T) {
	path := writeConfig(t, `{
		"providers": {"openai": {"model": "gpt-4o-mini"}},
		"interview": {"provider": "gemini"}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected provider mismatch error")
	}

	path = writeConfig(t, `{"interview": {"provider": "openai"}}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing providers error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
