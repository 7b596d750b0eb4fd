// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	FrontendURL      string
	DBPath           string
	JWTSecret        string
	TokenTTL         time.Duration
	SystemPromptPath string
	SessionListLimit int
	OpenAI           OpenAIConfig
}

// OpenAIConfig holds settings for the conversation engine and speech
// collaborators, which both speak the OpenAI-compatible HTTP API.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	ImageModel      string
	ImageSize       string
	TTSModel        string
	TTSVoice        string
	TranscribeModel string
	Language        string
	Timeout         time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/pepper.db"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         getEnvDuration("TOKEN_TTL", 12*time.Hour),
		SystemPromptPath: getEnv("SYSTEM_PROMPT_PATH", "./system_prompt.txt"),
		SessionListLimit: getEnvInt("SESSION_LIST_LIMIT", 50),
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
			ImageModel:      getEnv("IMAGE_MODEL", "dall-e-3"),
			ImageSize:       getEnv("IMAGE_SIZE", "1024x1024"),
			TTSModel:        getEnv("TTS_MODEL", "tts-1"),
			TTSVoice:        getEnv("TTS_VOICE", "fable"),
			TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
			Language:        getEnv("SPEECH_LANGUAGE", "es"),
			Timeout:         getEnvDuration("OPENAI_TIMEOUT", 120*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY cannot be empty")
	}
	if c.SessionListLimit <= 0 {
		return fmt.Errorf("SESSION_LIST_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
