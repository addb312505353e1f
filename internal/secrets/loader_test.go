package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	got, err := Load(Source{Name: "gemini api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	_, err := Load(Source{Name: "jwt secret", File: path})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("INTRAVIEW_TEST_SECRET", " env-value ")

	got, err := Load(Source{Name: "secret", Env: "INTRAVIEW_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-value" {
		t.Fatalf("expected env value, got %q", got)
	}

	got, err = Load(Source{Value: "inline", Env: "INTRAVIEW_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline value to win over env, got %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(Source{Name: "gemini api key"})
	if err == nil || !strings.Contains(err.Error(), "gemini api key is not configured") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "jwt secret", Env: "INTRAVIEW_TEST_UNSET_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}

	if _, err := Optional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for unreadable file")
	}
}
