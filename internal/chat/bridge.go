package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/musicmax-cli/internal/ai"
	"github.com/KaramelBytes/musicmax-cli/internal/config"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/KaramelBytes/musicmax-cli/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrMissingCredential is returned before any network call when the
	// session has no API key and the provider needs one.
	ErrMissingCredential = errors.New("missing API credential")
	ErrEmptyQuery        = errors.New("query cannot be empty")
	// ErrNoPromptBudget means max_tokens fills the model's whole context window.
	ErrNoPromptBudget = errors.New("no room left for the prompt")
)

// RuntimeFactory builds the runtime for one call from the session credential.
type RuntimeFactory func(apiKey string) (ai.Runtime, error)

// Bridge turns a query, matched records and prior history into a single
// completion prompt and records the exchange on success.
type Bridge struct {
	Provider  string
	Model     string
	MaxTokens int
	Stop      []string

	NewRuntime RuntimeFactory
	Logger     *zap.Logger
}

// NewBridge wires a bridge to the configured provider.
func NewBridge(cfg *config.Global, logger *zap.Logger) (*Bridge, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ai.ProviderAnthropic
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	}
	if provider == ai.ProviderOllama {
		rc.BaseURL = cfg.OllamaHost
	}
	if _, ok := ai.GetRuntime(provider, rc); !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	var stop []string
	if cfg.StopSequence != "" {
		stop = []string{cfg.StopSequence}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		Provider:  provider,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Stop:      stop,
		NewRuntime: func(apiKey string) (ai.Runtime, error) {
			c := rc
			c.APIKey = apiKey
			rt, _ := ai.GetRuntime(provider, c)
			return rt, nil
		},
		Logger: logger,
	}, nil
}

// Ask sends query with the context records and s's history. On success the
// exchange is appended to s; on any error s is left unchanged.
func (b *Bridge) Ask(ctx context.Context, s *Session, query string, records []dataset.Record) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	// Held across the call so concurrent asks on one session cannot interleave history.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey == "" && ai.RequiresAPIKey(b.Provider) {
		return "", ErrMissingCredential
	}
	if b.NewRuntime == nil {
		return "", errors.New("chat bridge has no runtime")
	}
	rt, err := b.NewRuntime(s.apiKey)
	if err != nil {
		return "", fmt.Errorf("build runtime: %w", err)
	}

	maxTokens := b.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	budget := ai.ContextBudget(b.Model, maxTokens)
	if budget <= 0 {
		return "", fmt.Errorf("%w: max_tokens %d reaches the context window of %s; lower max_tokens", ErrNoPromptBudget, maxTokens, b.Model)
	}
	prompt := BuildPrompt(s.history, records, query)
	if utils.CountTokens(prompt) > budget {
		// Keep the newest turns and the open assistant turn.
		prompt = utils.TruncateToTokenLimit(prompt, budget)
	}

	reqID := uuid.NewString()
	log := b.logger().With(zap.String("session", s.ID), zap.String("correlation_id", reqID), zap.String("provider", b.Provider))
	start := time.Now()
	resp, err := rt.Generate(ctx, ai.GenerateRequest{
		Model:     b.Model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
		Stop:      b.Stop,
	})
	if err != nil {
		log.Warn("chat request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("chat: %w", err)
	}
	answer := resp.Text()
	s.history = append(s.history, Turn{Query: query, Response: answer, At: time.Now()})
	log.Info("chat request completed",
		zap.String("request_id", resp.RequestID),
		zap.Int("prompt_tokens_est", utils.CountTokens(prompt)),
		zap.Int("context_rows", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

func (b *Bridge) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// BuildPrompt renders history as Human/Assistant turns, then a [CONTEXT]
// block with the records, then the query, ending with an open Assistant turn.
func BuildPrompt(history []Turn, records []dataset.Record, query string) string {
	var b strings.Builder
	for _, t := range history {
		b.WriteString(ai.HumanTurn)
		b.WriteString(" ")
		b.WriteString(t.Query)
		b.WriteString(ai.AssistantTurn)
		b.WriteString(" ")
		b.WriteString(t.Response)
	}
	b.WriteString(ai.HumanTurn)
	if len(records) > 0 {
		b.WriteString(" [CONTEXT]\n")
		b.WriteString(FormatRecords(records))
		b.WriteString("[/CONTEXT]\n")
	}
	b.WriteString(" ")
	b.WriteString(query)
	b.WriteString(ai.AssistantTurn)
	return b.String()
}

// FormatRecords writes one line per record as "col: value" pairs in column-name order.
func FormatRecords(records []dataset.Record) string {
	var b strings.Builder
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(r[k])
		}
		b.WriteString("\n")
	}
	return b.String()
}
