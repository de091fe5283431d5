package llm

import (
	"context"
	"fmt"
	"net/http"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

type openaiProvider struct {
	model  string
	apiKey string
	url    string
	client *http.Client
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

func (p *openaiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	key, err := pickKey(p.apiKey, req.APIKey)
	if err != nil {
		return nil, err
	}

	body := openaiRequest{Model: p.model}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, openaiMessage{Role: "user", Content: req.UserPrompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out openaiResponse
	header := http.Header{"Authorization": {"Bearer " + key}}
	if err := postJSON(ctx, p.client, "openai", p.url, header, body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	return &Response{Content: out.Choices[0].Message.Content, Model: reported(out.Model, p.model)}, nil
}
