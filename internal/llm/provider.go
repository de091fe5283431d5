// Package llm talks to chat-completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 60 * time.Second
	defaultMaxTokens = 4096
	maxBodyBytes     = 10 * 1024 * 1024
)

// Request holds the parameters for a completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// APIKey overrides the configured key when non-empty.
	APIKey string
	// JSON asks the provider to answer with a single JSON object.
	JSON bool
}

type Response struct {
	Content string
	Model   string // as reported by the API, or the configured model
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
}

type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" or "anthropic"
	Model    string
	APIKey   string
	// BaseURL overrides the API endpoint.
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// New returns the provider named by cfg. A missing server key is not an
// error: accounts may bring their own key per request.
func New(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		url := cfg.BaseURL
		if url == "" {
			url = openaiAPIURL
		}
		return &openaiProvider{model: cfg.Model, apiKey: cfg.APIKey, url: url, client: client}, nil
	case "anthropic":
		url := cfg.BaseURL
		if url == "" {
			url = anthropicAPIURL
		}
		return &anthropicProvider{model: cfg.Model, apiKey: cfg.APIKey, url: url, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are openai, anthropic", cfg.Provider)
	}
}

func pickKey(configured, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if configured == "" {
		return "", fmt.Errorf("llm: no API key configured")
	}
	return configured, nil
}

// apiFailure is the error envelope both providers use.
type apiFailure struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// postJSON sends in as a JSON body and decodes a 200 answer into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: provider, Status: resp.StatusCode, Message: truncate(string(data), 200)}
		var f apiFailure
		if json.Unmarshal(data, &f) == nil && f.Error != nil && f.Error.Message != "" {
			apiErr.Message = f.Error.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response %q: %w", provider, truncate(string(data), 200), err)
	}
	return nil
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func reported(model, configured string) string {
	if model != "" {
		return model
	}
	return configured
}
