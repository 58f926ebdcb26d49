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
	defaultLocalBaseURL = "http://localhost:11434"
	defaultLocalModel   = "llama3.2"
	defaultTimeout      = 30 * time.Second
	defaultTemperature  = 0.3
	defaultMaxTokens    = 1024
)

// LocalProvider talks to an Ollama-compatible /api/generate endpoint.
type LocalProvider struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithLocalBaseURL sets the inference server URL.
func WithLocalBaseURL(url string) LocalOption {
	return func(p *LocalProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithLocalModel sets the model name.
func WithLocalModel(model string) LocalOption {
	return func(p *LocalProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithLocalTemperature sets the sampling temperature.
func WithLocalTemperature(t float64) LocalOption {
	return func(p *LocalProvider) { p.temperature = t }
}

// WithLocalMaxTokens sets num_predict; zero keeps the default.
func WithLocalMaxTokens(n int) LocalOption {
	return func(p *LocalProvider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithLocalTimeout bounds each request.
func WithLocalTimeout(d time.Duration) LocalOption {
	return func(p *LocalProvider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// NewLocalProvider creates a provider for a local inference server.
// Defaults to localhost:11434.
func NewLocalProvider(opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		baseURL:     defaultLocalBaseURL,
		model:       defaultLocalModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		client:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// generateResponse is the Ollama /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Ask sends prompt to the local server and returns its answer.
func (p *LocalProvider) Ask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: p.temperature,
			NumPredict:  p.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := post(ctx, p.client, p.baseURL+"/api/generate", body, nil, "local model")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			var apiErr generateResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
				se.Message = apiErr.Error
			}
		}
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode local model response: %v", ErrNetwork, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: local model error: %s", ErrNetwork, resp.Error)
	}
	return strings.TrimSpace(resp.Response), nil
}
