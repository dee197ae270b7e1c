package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Defaults()
	cfg.General.MaxIterations = 7
	cfg.General.MaxSpendDollars = 2.5
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.MaxIterations != 7 {
		t.Fatalf("expected maxIterations 7, got %d", loaded.General.MaxIterations)
	}
	if loaded.General.MaxSpendDollars != 2.5 {
		t.Fatalf("expected maxSpendDollars 2.5, got %v", loaded.General.MaxSpendDollars)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	os.Setenv("MINIBOT_TEST_KEY", "sk-secret")
	defer os.Unsetenv("MINIBOT_TEST_KEY")

	content := `
general:
  maxIterations: 10
providers:
  openai:
    enabled: true
    apiKey: ${MINIBOT_TEST_KEY}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers["openai"].APIKey != "sk-secret" {
		t.Fatalf("env var not expanded: %q", cfg.Providers["openai"].APIKey)
	}
}

func TestExpandEnvVarsDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unset with default", "${MINIBOT_NO_SUCH_VAR:-fallback}", "fallback"},
		{"unset without default", "${MINIBOT_NO_SUCH_VAR}", "${MINIBOT_NO_SUCH_VAR}"},
		{"plain text untouched", "hello world", "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnvVars(tt.input); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxIterations = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for maxIterations=0")
	}

	cfg = Defaults()
	cfg.Session.Remote.Enabled = true
	cfg.Session.Remote.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for remote without baseUrl")
	}
}
