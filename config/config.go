package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultTranscriptionModel = "whisper-1"
	DefaultGroqModel          = "whisper-large-v3-turbo"
	DefaultCompletionModel    = "gpt-4o-mini"
	DefaultPerplexityModel    = "sonar-pro"
	DefaultGooseBuiltins      = "developer,fetch,skills"
)

type Config struct {
	OpenAIKey     string
	GroqKey       string
	PerplexityKey string

	Provider           string // "openai" or "groq"
	TranscriptionModel string
	Language           string
	UploadFormat       string // "wav" or "flac"
	// TranscriptionURL and CompletionURL replace the provider endpoints,
	// for OpenAI-compatible proxies. Empty uses the provider default.
	TranscriptionURL string
	CompletionURL    string

	CompletionModel string
	Temperature     float64
	MaxTokens       int
	PerplexityModel string

	GooseBinary   string
	GooseBuiltins string

	Device     string
	RuntimeDir string
	LogLevel   string
	Sounds     bool
	// SilenceWarning flags a microphone that hears nothing for 8s;
	// SilenceStop also ends the session after 30s without voice.
	SilenceWarning bool
	SilenceStop    bool

	TypeDelay  time.Duration
	TypeSettle time.Duration

	TranscribeTimeout time.Duration
	CompletionTimeout time.Duration
	AgentTimeout      time.Duration
	TypeTimeout       time.Duration
}

// duration lets TOML carry values like "90s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type fileConfig struct {
	OpenAIKey          string   `toml:"openai_api_key,omitempty"`
	GroqKey            string   `toml:"groq_api_key,omitempty"`
	PerplexityKey      string   `toml:"perplexity_api_key,omitempty"`
	Provider           string   `toml:"transcription_provider,omitempty"`
	TranscriptionModel string   `toml:"transcription_model,omitempty"`
	Language           string   `toml:"language,omitempty"`
	UploadFormat       string   `toml:"upload_format,omitempty"`
	TranscriptionURL   string   `toml:"transcription_url,omitempty"`
	CompletionURL      string   `toml:"completion_url,omitempty"`
	CompletionModel    string   `toml:"completion_model,omitempty"`
	Temperature        *float64 `toml:"temperature,omitempty"`
	MaxTokens          int      `toml:"max_tokens,omitempty"`
	PerplexityModel    string   `toml:"perplexity_model,omitempty"`
	GooseBinary        string   `toml:"goose_binary,omitempty"`
	GooseBuiltins      string   `toml:"goose_builtins,omitempty"`
	Device             string   `toml:"device,omitempty"`
	RuntimeDir         string   `toml:"runtime_dir,omitempty"`
	LogLevel           string   `toml:"log_level,omitempty"`
	Sounds             *bool    `toml:"sounds,omitempty"`
	SilenceWarning     *bool    `toml:"silence_warning,omitempty"`
	SilenceStop        *bool    `toml:"silence_stop,omitempty"`
	TypeDelay          duration `toml:"type_delay,omitempty"`
	TypeSettle         duration `toml:"type_settle,omitempty"`
	TranscribeTimeout  duration `toml:"transcribe_timeout,omitempty"`
	CompletionTimeout  duration `toml:"completion_timeout,omitempty"`
	AgentTimeout       duration `toml:"agent_timeout,omitempty"`
	TypeTimeout        duration `toml:"type_timeout,omitempty"`
}

func Default() *Config {
	return &Config{
		Provider:           "openai",
		TranscriptionModel: DefaultTranscriptionModel,
		UploadFormat:       "wav",
		CompletionModel:    DefaultCompletionModel,
		Temperature:        0.1,
		MaxTokens:          2000,
		PerplexityModel:    DefaultPerplexityModel,
		GooseBinary:        "goose",
		GooseBuiltins:      DefaultGooseBuiltins,
		RuntimeDir:         os.TempDir(),
		LogLevel:           "debug",
		Sounds:             true,
		SilenceWarning:     true,
		TypeDelay:          time.Millisecond,
		TypeSettle:         200 * time.Millisecond,
		TranscribeTimeout:  60 * time.Second,
		CompletionTimeout:  60 * time.Second,
		AgentTimeout:       300 * time.Second,
		TypeTimeout:        30 * time.Second,
	}
}

// Load builds the configuration from defaults, .env files, the TOML file
// and environment overrides, in that order of increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	dir := Dir()
	// A missing .env is normal; anything already in the environment wins.
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	_ = godotenv.Load()

	if path := FilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			var fc fileConfig
			if _, err := toml.DecodeFile(path, &fc); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
			fc.apply(cfg)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v duration) {
		if v.Duration > 0 {
			*dst = v.Duration
		}
	}

	set(&cfg.OpenAIKey, fc.OpenAIKey)
	set(&cfg.GroqKey, fc.GroqKey)
	set(&cfg.PerplexityKey, fc.PerplexityKey)
	set(&cfg.Provider, fc.Provider)
	set(&cfg.TranscriptionModel, fc.TranscriptionModel)
	set(&cfg.Language, fc.Language)
	set(&cfg.UploadFormat, fc.UploadFormat)
	set(&cfg.TranscriptionURL, fc.TranscriptionURL)
	set(&cfg.CompletionURL, fc.CompletionURL)
	set(&cfg.CompletionModel, fc.CompletionModel)
	set(&cfg.PerplexityModel, fc.PerplexityModel)
	set(&cfg.GooseBinary, fc.GooseBinary)
	set(&cfg.GooseBuiltins, fc.GooseBuiltins)
	set(&cfg.Device, fc.Device)
	set(&cfg.LogLevel, fc.LogLevel)
	if fc.RuntimeDir != "" {
		cfg.RuntimeDir = expandTilde(fc.RuntimeDir)
	}
	if fc.Temperature != nil {
		cfg.Temperature = *fc.Temperature
	}
	if fc.MaxTokens > 0 {
		cfg.MaxTokens = fc.MaxTokens
	}
	if fc.Sounds != nil {
		cfg.Sounds = *fc.Sounds
	}
	if fc.SilenceWarning != nil {
		cfg.SilenceWarning = *fc.SilenceWarning
	}
	if fc.SilenceStop != nil {
		cfg.SilenceStop = *fc.SilenceStop
	}
	setDur(&cfg.TypeDelay, fc.TypeDelay)
	setDur(&cfg.TypeSettle, fc.TypeSettle)
	setDur(&cfg.TranscribeTimeout, fc.TranscribeTimeout)
	setDur(&cfg.CompletionTimeout, fc.CompletionTimeout)
	setDur(&cfg.AgentTimeout, fc.AgentTimeout)
	setDur(&cfg.TypeTimeout, fc.TypeTimeout)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.GroqKey = v
	}
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		cfg.PerplexityKey = v
	}
	if v := os.Getenv("VOXENTRY_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("VOXENTRY_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("VOXENTRY_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("VOXENTRY_RUNTIME_DIR"); v != "" {
		cfg.RuntimeDir = expandTilde(v)
	}
	if v := os.Getenv("VOXENTRY_TRANSCRIPTION_URL"); v != "" {
		cfg.TranscriptionURL = v
	}
	if v := os.Getenv("VOXENTRY_COMPLETION_URL"); v != "" {
		cfg.CompletionURL = v
	}
	if v := os.Getenv("VOXENTRY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "groq":
	default:
		return fmt.Errorf("unknown transcription_provider %q (want openai or groq)", c.Provider)
	}
	switch c.UploadFormat {
	case "wav", "flac":
	default:
		return fmt.Errorf("unknown upload_format %q (want wav or flac)", c.UploadFormat)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// TranscriptionKey returns the API key of the configured provider.
func (c *Config) TranscriptionKey() string {
	if c.Provider == "groq" {
		return c.GroqKey
	}
	return c.OpenAIKey
}

func (c *Config) PIDPath() string      { return filepath.Join(c.RuntimeDir, "voxentry.pid") }
func (c *Config) ArtifactPath() string { return filepath.Join(c.RuntimeDir, "voxentry_audio.wav") }
func (c *Config) TypeLockPath() string { return filepath.Join(c.RuntimeDir, "voxentry_type.lock") }

// SaveDevice records the chosen capture device in the config file,
// keeping every other key that is already there.
func SaveDevice(name string) (string, error) {
	path := FilePath()
	if path == "" {
		return "", fmt.Errorf("no config directory available")
	}

	var fc fileConfig
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return "", fmt.Errorf("config %s: %w", path, err)
		}
	}
	fc.Device = name

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// Dir is the directory holding config.toml and .env.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "voxentry")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "voxentry")
	}
	return ""
}

func FilePath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
