package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

type anthropicProvider struct {
	model  string
	apiKey string
	url    string
	client *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	key, err := pickKey(p.apiKey, req.APIKey)
	if err != nil {
		return nil, err
	}

	system := req.SystemPrompt
	if req.JSON {
		// No native JSON mode; the instruction rides on the system prompt.
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object and nothing else.")
	}
	body := anthropicRequest{
		Model:     p.model,
		MaxTokens: defaultMaxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}

	var out anthropicResponse
	header := http.Header{
		"X-Api-Key":         {key},
		"Anthropic-Version": {anthropicVersion},
	}
	if err := postJSON(ctx, p.client, "anthropic", p.url, header, body, &out); err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("anthropic: no text in %d content blocks", len(out.Content))
	}
	return &Response{Content: content.String(), Model: reported(out.Model, p.model)}, nil
}
