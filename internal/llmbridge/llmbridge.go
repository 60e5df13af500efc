// Package llmbridge implements the external multimodal-AI collaborators
// this core consumes but never owns: subtitle detection
// (verify.SubtitleDetector), OCR text recognition (verify.TextRecognizer),
// and speech transcription (verify.Transcriber). Grounded on the
// teacher's internal/llm provider-adapter pattern (client.go's named-
// adapter registry, errors.go's typed HTTP error set) — adapted, not
// copied: the multi-provider Complete/Stream surface is narrowed to the
// single Describe call each of these three capabilities needs, and
// request/response bodies are shaped for this core's verification
// results instead of chat completions.
package llmbridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DescribeRequest is the narrow multimodal call every Provider serves:
// "describe/transcribe these images or this audio, per prompt".
type DescribeRequest struct {
	Prompt     string
	ImagePaths []string
	AudioPath  string
}

// DescribeResponse is the provider's answer, generic enough to back OCR
// text, subtitle text + language, or a speech transcript.
type DescribeResponse struct {
	Text       string
	Language   string
	Confidence float64
}

// Provider is implemented by one named multimodal backend (spec §1's
// "specify only their interfaces" — no concrete frontier-model SDK
// appears in the retrieval pack, so this talks to an OpenAI-compatible
// HTTP endpoint, the same shape the teacher's openaicompat adapter uses).
type Provider interface {
	Name() string
	Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error)
}

// Client is the named-provider registry (teacher's llm.Client, narrowed
// to one method). Adapters are registered by name; the first registered
// becomes the default.
type Client struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewClient returns an empty registry.
func NewClient() *Client {
	return &Client{providers: map[string]Provider{}}
}

// Register adds a named provider adapter, defaulting to it if none is set yet.
func (c *Client) Register(p Provider) {
	if c.providers == nil {
		c.providers = map[string]Provider{}
	}
	c.providers[p.Name()] = p
	if c.defaultProvider == "" {
		c.defaultProvider = p.Name()
	}
}

// Describe dispatches to the default registered provider.
func (c *Client) Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	if c == nil || c.defaultProvider == "" {
		return DescribeResponse{}, &ConfigurationError{Message: "no provider registered"}
	}
	return c.providers[c.defaultProvider].Describe(ctx, req)
}

// ConfigurationError mirrors the teacher's llm.ConfigurationError shape
// for a misconfigured bridge (no provider registered, no API key, etc).
type ConfigurationError struct{ Message string }

func (e *ConfigurationError) Error() string { return "llmbridge: configuration error: " + e.Message }

// OpenAICompatAdapter calls an OpenAI-compatible /v1/chat/completions
// endpoint with inline base64 image content; DescribeRequest.AudioPath is
// not sent, and only the reply text is returned (no language or
// confidence). Grounded on
// internal/llm/providers/openaicompat/adapter.go's request-building and
// response-parsing shape.
type OpenAICompatAdapter struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Model        string

	httpClient *http.Client
}

var _ Provider = (*OpenAICompatAdapter)(nil)

// NewOpenAICompatAdapter constructs an adapter with a generous request
// timeout, matching the teacher's 10-minute default for multimodal calls.
func NewOpenAICompatAdapter(providerName, apiKey, baseURL, model string) *OpenAICompatAdapter {
	return &OpenAICompatAdapter{
		ProviderName: strings.ToLower(strings.TrimSpace(providerName)),
		APIKey:       apiKey,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Model:        model,
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *OpenAICompatAdapter) Name() string { return a.ProviderName }

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *chatImageURL   `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Describe sends req.Prompt plus every image in req.ImagePaths as
// base64 data URLs to the configured chat-completions endpoint.
func (a *OpenAICompatAdapter) Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	content := []chatContent{{Type: "text", Text: req.Prompt}}
	for _, p := range req.ImagePaths {
		dataURL, err := encodeImageDataURL(p)
		if err != nil {
			return DescribeResponse{}, fmt.Errorf("llmbridge: encode image %s: %w", p, err)
		}
		content = append(content, chatContent{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}})
	}

	body, err := json.Marshal(chatCompletionsRequest{
		Model:    a.Model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return DescribeResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return DescribeResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return DescribeResponse{}, fmt.Errorf("llmbridge: %s request: %w", a.ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return DescribeResponse{}, fmt.Errorf("llmbridge: %s returned status %d", a.ProviderName, resp.StatusCode)
	}

	var parsed chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return DescribeResponse{}, fmt.Errorf("llmbridge: decode %s response: %w", a.ProviderName, err)
	}
	if len(parsed.Choices) == 0 {
		return DescribeResponse{}, fmt.Errorf("llmbridge: %s returned no choices", a.ProviderName)
	}
	return DescribeResponse{Text: strings.TrimSpace(parsed.Choices[0].Message.Content)}, nil
}

func encodeImageDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b), nil
}
