package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.SessionListLimit != 50 {
		t.Errorf("Expected default session list limit 50, got %d", cfg.SessionListLimit)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("Unexpected default chat model %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.TTSVoice != "fable" {
		t.Errorf("Unexpected default TTS voice %q", cfg.OpenAI.TTSVoice)
	}
	if cfg.OpenAI.Language != "es" {
		t.Errorf("Unexpected default language %q", cfg.OpenAI.Language)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_LIST_LIMIT", "10")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %q", cfg.Port)
	}
	if cfg.SessionListLimit != 10 {
		t.Errorf("Expected session list limit 10, got %d", cfg.SessionListLimit)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("Expected 30m token TTL, got %v", cfg.TokenTTL)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	if _, err := Load(); err == nil {
		t.Error("Expected an error without JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Error("Expected an error without OPENAI_API_KEY")
	}
}
