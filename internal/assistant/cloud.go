package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultCloudBaseURL = "https://api.openai.com"
	defaultCloudModel   = "gpt-4o-mini"
)

// CloudProvider calls an OpenAI-compatible /v1/chat/completions endpoint.
type CloudProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// CloudOption configures a CloudProvider.
type CloudOption func(*CloudProvider)

// WithCloudBaseURL sets the API host, without the /v1 path.
func WithCloudBaseURL(url string) CloudOption {
	return func(p *CloudProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithCloudModel sets the model name.
func WithCloudModel(model string) CloudOption {
	return func(p *CloudProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithCloudTemperature sets the sampling temperature.
func WithCloudTemperature(t float64) CloudOption {
	return func(p *CloudProvider) { p.temperature = t }
}

// WithCloudMaxTokens sets max_tokens; zero keeps the default.
func WithCloudMaxTokens(n int) CloudOption {
	return func(p *CloudProvider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithCloudTimeout bounds each request.
func WithCloudTimeout(d time.Duration) CloudOption {
	return func(p *CloudProvider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// NewCloudProvider creates a cloud provider. An empty apiKey is accepted
// here and reported as ErrConfiguration by Ask.
func NewCloudProvider(apiKey string, opts ...CloudOption) *CloudProvider {
	p := &CloudProvider{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     defaultCloudBaseURL,
		model:       defaultCloudModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		client:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Ask sends prompt as a single user message and returns the first choice.
func (p *CloudProvider) Ask(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: cloud provider selected but no API key is set", ErrConfiguration)
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	respBody, err := post(ctx, p.client, p.baseURL+"/v1/chat/completions", body, header, "cloud API")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			var apiErr chatError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				se.Message = apiErr.Error.Message
			}
		}
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode cloud API response: %v", ErrNetwork, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: cloud API returned no choices", ErrNetwork)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
