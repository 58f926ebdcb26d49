// Package assistant forwards questions about the user's tasks to a language
// model. A textual snapshot of the board is sent with every question to
// either a local Ollama-compatible server or a cloud OpenAI-compatible API.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tasktracker/internal/config"
)

// Error kinds reported by providers.
var (
	// ErrNetwork covers unreachable endpoints, timeouts, non-2xx replies
	// and undecodable responses.
	ErrNetwork = errors.New("assistant network error")
	// ErrConfiguration means the selected provider cannot be used as configured.
	ErrConfiguration = errors.New("assistant configuration error")
)

// Provider answers a prompt with free text.
type Provider interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider selected by cfg.
func NewProvider(cfg config.AssistantConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderLocal, "":
		return NewLocalProvider(
			WithLocalBaseURL(cfg.LocalURL),
			WithLocalModel(cfg.LocalModel),
			WithLocalTemperature(cfg.Temperature),
			WithLocalMaxTokens(cfg.MaxTokens),
			WithLocalTimeout(cfg.Timeout()),
		), nil
	case config.ProviderCloud:
		return NewCloudProvider(cfg.APIKey,
			WithCloudBaseURL(cfg.CloudURL),
			WithCloudModel(cfg.CloudModel),
			WithCloudTemperature(cfg.Temperature),
			WithCloudMaxTokens(cfg.MaxTokens),
			WithCloudTimeout(cfg.Timeout()),
		), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, cfg.Provider)
}

// post sends body as JSON and returns the response body of a 2xx reply.
// Transport failures and non-2xx replies are ErrNetwork.
func post(ctx context.Context, client *http.Client, url string, body []byte, header http.Header, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %s request timed out", ErrNetwork, name)
		}
		return nil, fmt.Errorf("%w: %s unreachable: %v", ErrNetwork, name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", ErrNetwork, name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, &StatusError{Provider: name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

type timeout interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}

// StatusError is a non-2xx reply. It matches ErrNetwork.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("%s error (%d): %s", e.Provider, e.StatusCode, msg)
}

// Is makes StatusError match ErrNetwork.
func (e *StatusError) Is(target error) bool {
	return target == ErrNetwork
}
