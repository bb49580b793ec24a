package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerator_Generate(t *testing.T) {
	server := newChatServer(t, "  Charizard is a fire and flying type.  ")
	defer server.Close()

	client := NewClient("test-key", server.URL)
	gen := NewGenerator(client, &Config{Model: "test-model", Temperature: 0.2, Logger: zap.NewNop()})

	answer, err := gen.Generate(context.Background(), "Question: what type is charizard?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Charizard is a fire and flying type." {
		t.Errorf("answer = %q, expected trimmed model output", answer)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail": "model overloaded"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	gen := NewGenerator(client, &Config{Model: "test-model", Logger: zap.NewNop()})

	_, err := gen.Generate(context.Background(), "hello")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("error = %v, expected ErrGenerationFailed", err)
	}
}

func TestGenerator_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "model": "test-model", "choices": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	gen := NewGenerator(client, &Config{Model: "test-model", Logger: zap.NewNop()})

	_, err := gen.Generate(context.Background(), "hello")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("error = %v, expected ErrGenerationFailed", err)
	}
}
