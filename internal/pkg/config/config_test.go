package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Load() port = %v, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Load() timeout = %v, want 30s", cfg.Server.Timeout)
	}
	if diff := cmp.Diff([]string{"public"}, cfg.Security.DefaultTags); diff != "" {
		t.Errorf("default tags mismatch (-want +got):\n%s", diff)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("storage type = %q, want sqlite", cfg.Storage.Type)
	}
	if got, want := cfg.Storage.DLQPath(), filepath.Join("storage", "dlq.jsonl"); got != want {
		t.Errorf("DLQPath() = %q, want %q", got, want)
	}
	if cfg.Validator.Webhook.OnError != "stub" || cfg.Validator.Webhook.Timeout != 5*time.Second {
		t.Errorf("webhook defaults = %+v", cfg.Validator.Webhook)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Retrieval.TopK)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
  timeout: 2s
storage:
  type: memory
  dir: /var/lib/uda
engine:
  backend: sequential
validator:
  webhook:
    url: http://nli.internal:8081/v1/faithfulness
    retries: 2
    headers:
      Authorization: Bearer ${UDA_TEST_TOKEN}
`)

	t.Setenv("UDA_TEST_TOKEN", "secret")
	t.Setenv("UDA_SERVER__PORT", "9200")
	t.Setenv("UDA_SECURITY__DEFAULT_TAGS", "internal,restricted")
	t.Setenv("UDA_MODEL_NAME", "gpt-4o")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Errorf("env override port = %v, want 9200", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.Server.Timeout)
	}
	if cfg.Storage.Type != "memory" || cfg.Engine.Backend != "sequential" {
		t.Errorf("storage/engine = %q/%q", cfg.Storage.Type, cfg.Engine.Backend)
	}
	if got, want := cfg.Storage.SQLitePath(), filepath.Join("/var/lib/uda", "runs.db"); got != want {
		t.Errorf("SQLitePath() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"internal", "restricted"}, cfg.Security.DefaultTags); diff != "" {
		t.Errorf("default tags mismatch (-want +got):\n%s", diff)
	}
	if cfg.ModelName != "gpt-4o" {
		t.Errorf("model_name = %q, want gpt-4o", cfg.ModelName)
	}
	if got := cfg.Validator.Webhook.Headers["Authorization"]; got != "Bearer secret" {
		t.Errorf("Authorization header = %q, want substituted token", got)
	}
	if cfg.Validator.Webhook.Retries != 2 {
		t.Errorf("retries = %d, want 2", cfg.Validator.Webhook.Retries)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"storage type", "storage:\n  type: postgres\n"},
		{"backend", "engine:\n  backend: dataflow\n"},
		{"on_error", "validator:\n  webhook:\n    on_error: retry\n"},
		{"log level", "logging:\n  level: chatty\n"},
		{"port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvValue(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		value   string
		wantKey string
		want    any
	}{
		{"scalar", "UDA_SERVER__PORT", "9200", "server.port", "9200"},
		{"tag list", "UDA_SECURITY__DEFAULT_TAGS", "internal, restricted", "security.default_tags", []string{"internal", "restricted"}},
		{"single tag", "UDA_SECURITY__DEFAULT_TAGS", "public", "security.default_tags", []string{"public"}},
		{"empty items dropped", "UDA_SECURITY__DEFAULT_TAGS", ",internal,,", "security.default_tags", []string{"internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, got := envValue(tt.env, tt.value)
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
