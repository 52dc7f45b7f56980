package generation

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

// OpenAIProvider implements Provider for OpenAI-compatible chat APIs.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
	retryConfig  RetryConfig
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
		retryConfig:  DefaultRetryConfig(),
	}
}

// WithHTTPClient overrides the HTTP client (used by tests).
func (p *OpenAIProvider) WithHTTPClient(hc *http.Client) *OpenAIProvider {
	p.client = hc
	return p
}

func (p *OpenAIProvider) Name() string { return p.name }

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", p.name, err)
	}

	return RetryDo(ctx, p.retryConfig, func() (*ChatResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			p.apiBase+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w", p.name, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return nil, Retryable(fmt.Errorf("%s: %w", p.name, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, Retryable(fmt.Errorf("%s: read response: %w", p.name, err))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, Retryable(fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, truncate(string(data), 200)))
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, truncate(string(data), 200))
		}

		var oaiResp openAIResponse
		if err := json.Unmarshal(data, &oaiResp); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
		}
		if oaiResp.Error != nil {
			return nil, fmt.Errorf("%s: %s", p.name, oaiResp.Error.Message)
		}
		if len(oaiResp.Choices) == 0 {
			return nil, fmt.Errorf("%s: empty choices", p.name)
		}

		choice := oaiResp.Choices[0]
		return &ChatResponse{
			Content:      choice.Message.Content,
			FinishReason: choice.FinishReason,
			Usage:        oaiResp.Usage,
		}, nil
	})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
