package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestAnthropicCompleteSendsPromptVerbatim(t *testing.T) {
	var got anthropicCompleteRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/complete" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-api-key") != "sk-ant" || r.Header.Get("anthropic-version") != anthropicVersion {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Request-Id", "req_ant_1")
		_ = json.NewEncoder(w).Encode(map[string]any{"completion": " Try pop-film. ", "stop_reason": "stop_sequence"})
	}))
	defer srv.Close()

	c := NewAnthropicClientWithBaseURL("sk-ant", 2*time.Second, 1, 0, 0, srv.URL)
	prompt := HumanTurn + " hi" + AssistantTurn
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "claude-2.1", Prompt: prompt, MaxTokens: 300, Stop: []string{HumanTurn}})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "Try pop-film." {
		t.Fatalf("unexpected completion %q", resp.Text())
	}
	if resp.RequestID != "req_ant_1" {
		t.Fatalf("request id not captured: %q", resp.RequestID)
	}
	if got.Prompt != prompt || got.MaxTokensToSample != 300 || got.Model != "claude-2.1" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.StopSequences) != 1 || got.StopSequences[0] != HumanTurn {
		t.Fatalf("unexpected stop sequences: %+v", got.StopSequences)
	}
}

func TestAnthropicInvalidKey(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"type": "error", "error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"}})
	}))
	defer srv.Close()

	c := NewAnthropicClientWithBaseURL("wrong", 2*time.Second, 2, time.Millisecond, time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "claude-2.1", Prompt: "x"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if authErr.Code != "authentication_error" {
		t.Fatalf("unexpected code %q", authErr.Code)
	}
}

func TestAnthropicRetriesOverloaded(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(529)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"type": "overloaded_error", "message": "Overloaded"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"completion": "ok"})
	}))
	defer srv.Close()

	c := NewAnthropicClientWithBaseURL("k", 2*time.Second, 3, time.Millisecond, 5*time.Millisecond, srv.URL)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "claude-2.1", Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "ok" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("text=%q calls=%d", resp.Text(), calls)
	}
}

func TestRenderPrompt(t *testing.T) {
	got := RenderPrompt([]Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}, {Role: "user", Content: "c"}})
	want := "\n\nHuman: a\n\nAssistant: b\n\nHuman: c\n\nAssistant:"
	if got != want {
		t.Fatalf("RenderPrompt = %q, want %q", got, want)
	}
	if RenderPrompt(nil) != "" {
		t.Fatalf("empty messages should render empty prompt")
	}
	if !strings.HasSuffix(got, AssistantTurn) {
		t.Fatalf("prompt must end with an open assistant turn")
	}
}

func TestRegistryBuildsProviders(t *testing.T) {
	for _, p := range []string{ProviderAnthropic, ProviderOpenRouter, ProviderOllama} {
		if _, ok := GetRuntime(p, RuntimeConfig{APIKey: "k"}); !ok {
			t.Fatalf("provider %s not registered", p)
		}
	}
	if _, ok := GetRuntime("nope", RuntimeConfig{}); ok {
		t.Fatalf("unknown provider should not resolve")
	}
	if RequiresAPIKey(ProviderOllama) || !RequiresAPIKey(ProviderAnthropic) {
		t.Fatalf("unexpected credential requirements")
	}
}

func TestContextBudget(t *testing.T) {
	if got := ContextBudget("claude-2.1", 300); got != 200000-300 {
		t.Fatalf("ContextBudget(claude-2.1) = %d", got)
	}
	if got := ContextBudget("unknown", 300); got != 8192-300 {
		t.Fatalf("ContextBudget(unknown) = %d", got)
	}
}
