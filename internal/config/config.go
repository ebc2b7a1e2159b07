// Package config loads and persists the bot configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the JSON configuration document.
type Config struct {
	BotToken string `json:"bot_token"`

	// DataDir holds the voice store, the sample library and scratch audio.
	DataDir string `json:"data_dir"`

	DefaultModel       string   `json:"default_model"`
	DefaultLanguage    string   `json:"default_language"`
	SupportedLanguages []string `json:"supported_languages"`

	// MaxVoiceDuration is the clone sample limit in seconds.
	MaxVoiceDuration float64 `json:"max_voice_duration"`
	// MaxTextLength is the synthesis input limit in characters.
	MaxTextLength int `json:"max_text_length"`

	AudioFormat string `json:"audio_format"`
	SampleRate  int    `json:"sample_rate"`

	Synth SynthConfig `json:"synth"`
}

// SynthConfig selects and tunes the synthesis backend.
type SynthConfig struct {
	Provider  string `json:"provider"` // "qwen" or "server"
	Bin       string `json:"bin,omitempty"`
	ServerURL string `json:"server_url,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		DataDir:            defaultDataDir(),
		DefaultModel:       "Qwen/Qwen3-TTS-12Hz-1.7B-Base",
		DefaultLanguage:    "ru",
		SupportedLanguages: []string{"ru", "en", "zh", "ja", "ko", "de", "fr", "es", "it", "pt"},
		MaxVoiceDuration:   30,
		MaxTextLength:      1000,
		AudioFormat:        "wav",
		SampleRate:         24000,
		Synth:              SynthConfig{Provider: "qwen"},
	}
}

// Load reads the config at path, filling absent fields with defaults.
// A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultPath returns the config file location: $VOICECLAW_CONFIG if set,
// otherwise ~/.voiceclaw/config.json.
func DefaultPath() string {
	if p := os.Getenv("VOICECLAW_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "voiceclaw.json"
	}
	return filepath.Join(home, ".voiceclaw", "config.json")
}

// VoiceStorePath is the durable voice registry document.
func (c *Config) VoiceStorePath() string {
	return filepath.Join(c.DataDir, "voices.json")
}

// LibraryDir holds reference samples of cloned voices.
func (c *Config) LibraryDir() string {
	return filepath.Join(c.DataDir, "voice_library")
}

// TempDir holds in-flight uploaded samples and synthesis output.
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "temp_audio")
}

// Validate reports configuration problems that prevent startup.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot_token is not set")
	}
	if c.MaxTextLength < 2 {
		return fmt.Errorf("max_text_length must be at least 2, got %d", c.MaxTextLength)
	}
	if c.MaxVoiceDuration < 1 {
		return fmt.Errorf("max_voice_duration must be at least 1 second, got %v", c.MaxVoiceDuration)
	}
	switch c.Synth.Provider {
	case "qwen":
	case "server":
		if c.Synth.ServerURL == "" {
			return fmt.Errorf("synth.server_url required for the server provider")
		}
	default:
		return fmt.Errorf("unknown synth provider %q", c.Synth.Provider)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = def.DefaultModel
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}
	if len(cfg.SupportedLanguages) == 0 {
		cfg.SupportedLanguages = def.SupportedLanguages
	}
	if cfg.MaxVoiceDuration <= 0 {
		cfg.MaxVoiceDuration = def.MaxVoiceDuration
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = def.AudioFormat
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Synth.Provider == "" {
		cfg.Synth.Provider = def.Synth.Provider
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".voiceclaw", "data")
}
