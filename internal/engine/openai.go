package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pepper/internal/config"
)

const chatTemperature = 0.2

// OpenAIClient speaks the OpenAI-compatible chat completions and image
// generation APIs.
type OpenAIClient struct {
	chatModel  string
	imageModel string
	imageSize  string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient constructs an engine client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		imageSize:  cfg.ImageSize,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "engine"),
	}
}

// Respond calls the chat completions endpoint and runs trigger detection
// over the exchange.
func (c *OpenAIClient) Respond(ctx context.Context, history []Turn, input string) (*Reply, error) {
	messages := make([]Turn, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Turn{Role: RoleUser, Content: input})

	reqBody := map[string]any{
		"model":       c.chatModel,
		"messages":    messages,
		"temperature": chatTemperature,
		"stream":      false,
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", reqBody, &parsed); err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}

	text := parsed.Choices[0].Message.Content
	return &Reply{
		Text:        text,
		ImagePrompt: DetectImagePrompt(input, text),
	}, nil
}

// GenerateImage calls the image generation endpoint and returns the URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.imageModel,
		"prompt": prompt,
		"n":      1,
		"size":   c.imageSize,
	}

	var parsed struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/images/generations", reqBody, &parsed); err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("image generation: no image in response")
	}
	return parsed.Data[0].URL, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("engine request failed", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, truncate(respBody, 256))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
