package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pepper/internal/config"
)

// OpenAIClient speaks the OpenAI-compatible audio endpoints.
type OpenAIClient struct {
	ttsModel        string
	ttsVoice        string
	transcribeModel string
	language        string
	apiKey          string
	baseURL         string
	httpClient      *http.Client
	logger          *slog.Logger
}

// NewOpenAIClient constructs a speech client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		ttsModel:        cfg.TTSModel,
		ttsVoice:        cfg.TTSVoice,
		transcribeModel: cfg.TranscribeModel,
		language:        cfg.Language,
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger.With("module", "speech"),
	}
}

// Synthesize renders the text via the audio/speech endpoint.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.ttsModel,
		"voice": c.ttsVoice,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("speech synthesis failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("speech synthesis returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

// Transcribe writes the recording to a scoped temp file and posts it to the
// audio/transcriptions endpoint. The temp file is removed on every path.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	tempDir, err := os.MkdirTemp("", "pepper-audio-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			c.logger.Warn("failed to remove temp audio dir", "dir", tempDir, "error", rmErr)
		}
	}()

	tempPath := filepath.Join(tempDir, "recording.wav")
	if err := os.WriteFile(tempPath, audio, 0600); err != nil {
		return "", fmt.Errorf("write temp audio: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(tempPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	f, err := os.Open(tempPath)
	if err != nil {
		return "", fmt.Errorf("open temp audio: %w", err)
	}
	_, copyErr := io.Copy(part, f)
	if closeErr := f.Close(); closeErr != nil {
		c.logger.Warn("failed to close temp audio file", "error", closeErr)
	}
	if copyErr != nil {
		return "", fmt.Errorf("copy temp audio: %w", copyErr)
	}

	if err := mw.WriteField("model", c.transcribeModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := mw.WriteField("language", c.language); err != nil {
		return "", fmt.Errorf("write language field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("transcription failed", "status", resp.StatusCode)
		return "", fmt.Errorf("transcription returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return parsed.Text, nil
}
