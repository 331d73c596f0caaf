package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/musicmax-cli/internal/ai"
	"github.com/KaramelBytes/musicmax-cli/internal/config"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fakeBridge(calls *[]ai.GenerateRequest, reply string, err error) *Bridge {
	return &Bridge{
		Provider:  ai.ProviderAnthropic,
		Model:     "claude-2.1",
		MaxTokens: 300,
		Stop:      []string{ai.HumanTurn},
		NewRuntime: func(apiKey string) (ai.Runtime, error) {
			return ai.RuntimeFunc(func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
				*calls = append(*calls, req)
				if err != nil {
					return nil, err
				}
				return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: reply}}}}, nil
			}), nil
		},
	}
}

func TestAskAppendsHistory(t *testing.T) {
	var calls []ai.GenerateRequest
	b := fakeBridge(&calls, "Try classical.", nil)
	s := NewSession("s1")
	s.SetAPIKey("sk-test")

	records := []dataset.Record{{"track_name": "Piano Concerto No. 2", "track_genre": "classical"}}
	got, err := b.Ask(context.Background(), s, "recommend piano music", records)
	require.NoError(t, err)
	assert.Equal(t, "Try classical.", got)
	require.Len(t, calls, 1)
	assert.Equal(t, 300, calls[0].MaxTokens)
	assert.Equal(t, []string{ai.HumanTurn}, calls[0].Stop)
	assert.Contains(t, calls[0].Prompt, "[CONTEXT]")
	assert.Contains(t, calls[0].Prompt, "track_name: Piano Concerto No. 2")
	assert.True(t, strings.HasSuffix(calls[0].Prompt, "recommend piano music"+ai.AssistantTurn))

	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, "recommend piano music", h[0].Query)
	assert.Equal(t, "Try classical.", h[0].Response)

	_, err = b.Ask(context.Background(), s, "and something faster?", nil)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[1].Prompt, ai.HumanTurn+" recommend piano music"+ai.AssistantTurn+" Try classical."))
	assert.Equal(t, 2, s.Len())
}

func TestAskMissingCredential(t *testing.T) {
	var calls []ai.GenerateRequest
	b := fakeBridge(&calls, "x", nil)
	s := NewSession("s2")

	_, err := b.Ask(context.Background(), s, "hello", nil)
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Empty(t, calls, "no network call without a credential")
	assert.Equal(t, 0, s.Len())
}

func TestAskFailureLeavesHistory(t *testing.T) {
	var calls []ai.GenerateRequest
	ok := fakeBridge(&calls, "first", nil)
	s := NewSession("s3")
	s.SetAPIKey("sk-test")
	_, err := ok.Ask(context.Background(), s, "one", nil)
	require.NoError(t, err)

	authErr := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "invalid x-api-key"}}
	failing := fakeBridge(&calls, "", authErr)
	_, err = failing.Ask(context.Background(), s, "two", nil)
	require.Error(t, err)
	var target *ai.AuthError
	assert.True(t, errors.As(err, &target))

	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, "one", h[0].Query)
}

func TestAskEmptyQuery(t *testing.T) {
	var calls []ai.GenerateRequest
	b := fakeBridge(&calls, "x", nil)
	s := NewSession("s4")
	s.SetAPIKey("k")
	_, err := b.Ask(context.Background(), s, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAskRejectsMaxTokensFillingContext(t *testing.T) {
	var calls []ai.GenerateRequest
	b := fakeBridge(&calls, "x", nil)
	b.Model = "phi3:mini-4k-instruct"
	b.MaxTokens = 4096
	s := NewSession("s6")
	s.SetAPIKey("k")

	_, err := b.Ask(context.Background(), s, "hello", nil)
	require.ErrorIs(t, err, ErrNoPromptBudget)
	assert.Contains(t, err.Error(), "max_tokens 4096")
	assert.Empty(t, calls)
	assert.Equal(t, 0, s.Len())
}

func TestBuildPromptWithoutContext(t *testing.T) {
	p := BuildPrompt(nil, nil, "hi")
	assert.Equal(t, "\n\nHuman: hi\n\nAssistant:", p)
}

func TestSessionReset(t *testing.T) {
	s := NewSession("s5")
	s.SetAPIKey("k")
	assert.True(t, s.HasAPIKey())
	s.Reset()
	assert.False(t, s.HasAPIKey())
	assert.Empty(t, s.History())
}

func TestNewBridgeFromConfig(t *testing.T) {
	cfg := &config.Global{Provider: "Anthropic", Model: "claude-2.1", MaxTokens: 300, StopSequence: "\n\nHuman:"}
	b, err := NewBridge(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderAnthropic, b.Provider)
	assert.Equal(t, []string{"\n\nHuman:"}, b.Stop)
	rt, err := b.NewRuntime("k")
	require.NoError(t, err)
	assert.IsType(t, &ai.AnthropicClient{}, rt)

	_, err = NewBridge(&config.Global{Provider: "nope"}, nil)
	assert.Error(t, err)
}
