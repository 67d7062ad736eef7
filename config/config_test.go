package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, k := range []string{
		"OPENAI_API_KEY", "GROQ_API_KEY", "PERPLEXITY_API_KEY",
		"VOXENTRY_PROVIDER", "VOXENTRY_LANGUAGE", "VOXENTRY_DEVICE",
		"VOXENTRY_RUNTIME_DIR", "VOXENTRY_LOG_LEVEL",
		"VOXENTRY_TRANSCRIPTION_URL", "VOXENTRY_COMPLETION_URL",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	return filepath.Join(xdg, "voxentry")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CompletionModel != "gpt-4o-mini" || cfg.Temperature != 0.1 || cfg.MaxTokens != 2000 {
		t.Errorf("completion defaults = %q %v %d", cfg.CompletionModel, cfg.Temperature, cfg.MaxTokens)
	}
	if cfg.AgentTimeout != 300*time.Second {
		t.Errorf("AgentTimeout = %v", cfg.AgentTimeout)
	}
	if !cfg.SilenceWarning || cfg.SilenceStop {
		t.Errorf("silence defaults = %v %v", cfg.SilenceWarning, cfg.SilenceStop)
	}
	if cfg.TypeTimeout != 30*time.Second {
		t.Errorf("TypeTimeout = %v", cfg.TypeTimeout)
	}
	if cfg.TypeSettle != 200*time.Millisecond {
		t.Errorf("TypeSettle = %v", cfg.TypeSettle)
	}
	if !strings.HasSuffix(cfg.PIDPath(), "voxentry.pid") {
		t.Errorf("PIDPath = %q", cfg.PIDPath())
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
transcription_provider = "groq"
groq_api_key = "gsk-file"
upload_format = "flac"
temperature = 0.0
sounds = false
silence_stop = true
agent_timeout = "90s"
runtime_dir = "/tmp/vox"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "groq" || cfg.TranscriptionKey() != "gsk-file" {
		t.Errorf("provider = %q key = %q", cfg.Provider, cfg.TranscriptionKey())
	}
	if cfg.UploadFormat != "flac" {
		t.Errorf("UploadFormat = %q", cfg.UploadFormat)
	}
	if cfg.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", cfg.Temperature)
	}
	if cfg.Sounds {
		t.Error("Sounds should be disabled")
	}
	if !cfg.SilenceStop || !cfg.SilenceWarning {
		t.Errorf("silence = %v %v", cfg.SilenceWarning, cfg.SilenceStop)
	}
	if cfg.AgentTimeout != 90*time.Second {
		t.Errorf("AgentTimeout = %v", cfg.AgentTimeout)
	}
	if cfg.ArtifactPath() != "/tmp/vox/voxentry_audio.wav" {
		t.Errorf("ArtifactPath = %q", cfg.ArtifactPath())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `openai_api_key = "sk-file"`)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAIKey != "sk-env" {
		t.Errorf("OpenAIKey = %q, want sk-env", cfg.OpenAIKey)
	}
}

func TestEndpointOverrides(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `completion_url = "http://proxy.local/v1"`)
	t.Setenv("VOXENTRY_TRANSCRIPTION_URL", "http://127.0.0.1:9/audio")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CompletionURL != "http://proxy.local/v1" || cfg.TranscriptionURL != "http://127.0.0.1:9/audio" {
		t.Errorf("urls = %q, %q", cfg.CompletionURL, cfg.TranscriptionURL)
	}
}

func TestDotEnvLoaded(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "PERPLEXITY_API_KEY=pplx-dotenv\n")
	// godotenv never overrides a variable that is set, even to "".
	os.Unsetenv("PERPLEXITY_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PerplexityKey != "pplx-dotenv" {
		t.Errorf("PerplexityKey = %q", cfg.PerplexityKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider = "whisper.cpp" }},
		{"format", func(c *Config) { c.UploadFormat = "mp3" }},
		{"tokens", func(c *Config) { c.MaxTokens = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBadFileIsError(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `max_tokens = "lots"`)

	if _, err := Load(); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveDevicePreservesKeys(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `openai_api_key = "sk-keep"`)

	path, err := SaveDevice("USB Mic")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("path = %q", path)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "USB Mic" || cfg.OpenAIKey != "sk-keep" {
		t.Errorf("device = %q key = %q", cfg.Device, cfg.OpenAIKey)
	}
}
