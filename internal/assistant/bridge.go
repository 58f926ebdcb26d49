package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasktracker/internal/config"
	"tasktracker/internal/models"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// WarningPrefix marks assistant messages that report a failure.
const WarningPrefix = "⚠️ "

const welcomeText = "Hi! I'm WorkBuddy 👋 I can help you find tasks, summarize your work, and answer questions about your projects."

// Message is one entry of the chat.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// SnapshotSource provides the board data sent along with each question.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]models.ProjectTasks, error)
}

// ConfigSource provides the assistant settings in effect for a call.
type ConfigSource interface {
	Assistant() (config.AssistantConfig, error)
}

// ProviderFactory builds a provider for the given settings.
type ProviderFactory func(config.AssistantConfig) (Provider, error)

// Bridge keeps the conversation and relays questions to the configured
// provider. Provider failures become warning messages in the conversation
// rather than errors, so the chat stays usable.
type Bridge struct {
	tasks     SnapshotSource
	settings  ConfigSource
	providers ProviderFactory
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithProviderFactory replaces NewProvider.
func WithProviderFactory(f ProviderFactory) BridgeOption {
	return func(b *Bridge) { b.providers = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBridge creates a bridge with a fresh conversation.
func NewBridge(tasks SnapshotSource, settings ConfigSource, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		tasks:     tasks,
		settings:  settings,
		providers: NewProvider,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.messages = []Message{b.newMessage(RoleAssistant, welcomeText)}
	return b
}

func (b *Bridge) newMessage(role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: b.now(),
	}
}

// Messages returns a copy of the conversation.
func (b *Bridge) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Reset starts a new conversation.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = []Message{b.newMessage(RoleAssistant, welcomeText)}
}

// Send records the user's message, asks the provider and records the reply.
// It returns the reply, which is a warning message when the provider or the
// task snapshot failed. Only an empty message is an error.
func (b *Bridge) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("%w: message must not be empty", models.ErrValidation)
	}

	cfg, cfgErr := b.settings.Assistant()

	b.mu.Lock()
	history := recentHistory(b.messages, cfg.HistoryLimit)
	b.messages = append(b.messages, b.newMessage(RoleUser, text))
	b.mu.Unlock()

	answer, err := b.ask(ctx, cfg, cfgErr, history, text)

	var reply Message
	if err != nil {
		b.logger.Warn("assistant request failed", slog.String("provider", cfg.Provider), slog.String("error", err.Error()))
		reply = b.newMessage(RoleAssistant, WarningPrefix+err.Error())
		reply.Error = true
	} else {
		reply = b.newMessage(RoleAssistant, answer)
	}

	b.mu.Lock()
	b.messages = append(b.messages, reply)
	b.mu.Unlock()
	return reply, nil
}

// Ask answers a single question without touching the conversation.
func (b *Bridge) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question must not be empty", models.ErrValidation)
	}
	cfg, err := b.settings.Assistant()
	return b.ask(ctx, cfg, err, nil, question)
}

func (b *Bridge) ask(ctx context.Context, cfg config.AssistantConfig, cfgErr error, history []Message, question string) (string, error) {
	if cfgErr != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, cfgErr)
	}

	snapshot, err := b.tasks.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("could not read tasks: %w", err)
	}
	prompt, err := BuildPrompt(snapshot, history, question, b.now())
	if err != nil {
		return "", err
	}

	provider, err := b.providers(cfg)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	started := b.now()
	answer, err := provider.Ask(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrNetwork) {
			return "", fmt.Errorf("%w: no answer within %s", ErrNetwork, cfg.Timeout())
		}
		return "", err
	}
	b.logger.Debug("assistant answered",
		slog.String("provider", cfg.Provider),
		slog.Int("prompt_chars", len(prompt)),
		slog.Duration("elapsed", b.now().Sub(started)))
	if answer == "" {
		answer = "(no answer)"
	}
	return answer, nil
}

// recentHistory returns up to limit earlier exchanges, skipping the welcome
// message and failed replies.
func recentHistory(messages []Message, limit int) []Message {
	if limit <= 0 {
		return nil
	}
	var out []Message
	for i, m := range messages {
		if i == 0 && m.Role == RoleAssistant && m.Text == welcomeText {
			continue
		}
		if m.Error {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
