package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadFromYAML(t *testing.T) {
	configPath := writeConfig(t, `ai:
  provider: cerebras
  model: llama-3.3-70b
  timeout: 45s
fetch:
  max_content_chars: 12000
transcript:
  languages: [en, en-GB]
storage:
  backend: s3
  s3_bucket: recipes-test
lexicon:
  units: [pinch, dash]
  cooking_verbs: [simmer]`)

	cfg := &Config{}
	if err := cfg.LoadFromYAML(configPath); err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.AI.Provider != "cerebras" {
		t.Errorf("Expected provider to be 'cerebras', got '%s'", cfg.AI.Provider)
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Errorf("Expected AI timeout 45s, got %v", cfg.AI.Timeout)
	}
	if cfg.Fetch.MaxContentChars != 12000 {
		t.Errorf("Expected max_content_chars 12000, got %d", cfg.Fetch.MaxContentChars)
	}
	if len(cfg.Transcript.Languages) != 2 || cfg.Transcript.Languages[1] != "en-GB" {
		t.Errorf("Unexpected transcript languages: %v", cfg.Transcript.Languages)
	}
	if cfg.Storage.S3Bucket != "recipes-test" {
		t.Errorf("Expected bucket 'recipes-test', got '%s'", cfg.Storage.S3Bucket)
	}
	if len(cfg.Lexicon.Units) != 2 || cfg.Lexicon.CookingVerbs[0] != "simmer" {
		t.Errorf("Unexpected lexicon: %+v", cfg.Lexicon)
	}
}

func TestLoadFromYAML_EnvWins(t *testing.T) {
	configPath := writeConfig(t, `ai:
  provider: openai`)

	cfg := &Config{AI: AIConfig{Provider: "groq"}}
	if err := cfg.LoadFromYAML(configPath); err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}
	if cfg.AI.Provider != "groq" {
		t.Errorf("Expected env provider 'groq' to win, got '%s'", cfg.AI.Provider)
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("Missing file should not be an error, got %v", err)
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.AI.MaxTokens != 5000 {
		t.Errorf("Expected max tokens 5000, got %d", cfg.AI.MaxTokens)
	}
	if cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("Expected fetch timeout 10s, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxContentChars != 15000 {
		t.Errorf("Expected content budget 15000, got %d", cfg.Fetch.MaxContentChars)
	}
	want := []string{"en", "en-US", "en-GB", "auto-en"}
	if len(cfg.Transcript.Languages) != len(want) {
		t.Fatalf("Expected languages %v, got %v", want, cfg.Transcript.Languages)
	}
	for i := range want {
		if cfg.Transcript.Languages[i] != want[i] {
			t.Errorf("Language[%d] = %s, want %s", i, cfg.Transcript.Languages[i], want[i])
		}
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend by default, got %s", cfg.Storage.Backend)
	}
}

func TestLoadFile_Env(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("STORAGE_BACKEND", "sqlite")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.AI.APIKey() != "sk-test" {
		t.Errorf("APIKey() = %q, want sk-test", cfg.AI.APIKey())
	}
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 3s", cfg.Fetch.Timeout)
	}
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"s3 without bucket", map[string]string{"STORAGE_BACKEND": "s3"}, true},
		{"postgres without dsn", map[string]string{"STORAGE_BACKEND": "postgres"}, true},
		{"postgres with dsn", map[string]string{"STORAGE_BACKEND": "postgres", "DATABASE_URL": "postgres://localhost/r"}, false},
		{"unknown provider", map[string]string{"AI_PROVIDER": "llamafile"}, true},
		{"bad duration", map[string]string{"AI_TIMEOUT": "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile("")
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOTLPHeaders(t *testing.T) {
	cfg := &Config{OtelExporterOTLPHeaders: "Authorization=Bearer abc, x-team = kitchen,broken"}
	headers := cfg.OTLPHeaders()
	if headers["Authorization"] != "Bearer abc" {
		t.Errorf("Authorization = %q", headers["Authorization"])
	}
	if headers["x-team"] != "kitchen" {
		t.Errorf("x-team = %q", headers["x-team"])
	}
	if len(headers) != 2 {
		t.Errorf("expected 2 headers, got %d", len(headers))
	}
}
