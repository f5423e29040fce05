package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

func TestGeminiMissingAPIKey(t *testing.T) {
	c := NewGeminiClient("", time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.0-flash", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGeminiTextJoinsParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"query":`), genai.Text(`"x"}`)}},
		}},
	}
	if got := geminiText(resp); got != `{"query":"x"}` {
		t.Fatalf("unexpected text %q", got)
	}
	if got := geminiText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("expected empty text for no candidates, got %q", got)
	}
}

func TestConfigureGeminiSampling(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureGemini(model, GenerateRequest{Temperature: Float(0.1), TopK: 64, TopP: Float(0.96), ResponseFormat: FormatJSON})
	if model.Temperature == nil || *model.Temperature != float32(0.1) {
		t.Fatalf("temperature not set: %v", model.Temperature)
	}
	if model.TopK == nil || *model.TopK != 64 {
		t.Fatalf("top_k not set: %v", model.TopK)
	}
	if model.TopP == nil || *model.TopP != float32(0.96) {
		t.Fatalf("top_p not set: %v", model.TopP)
	}
	if model.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON mime type, got %q", model.ResponseMIMEType)
	}

	greedy := &genai.GenerativeModel{}
	configureGemini(greedy, GenerateRequest{Temperature: Float(0)})
	if greedy.Temperature == nil || *greedy.Temperature != 0 {
		t.Fatalf("explicit zero temperature dropped: %v", greedy.Temperature)
	}
	if greedy.TopP != nil || greedy.TopK != nil {
		t.Fatalf("unset sampling fields should stay nil: top_p=%v top_k=%v", greedy.TopP, greedy.TopK)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(&googleapi.Error{Code: 429, Message: "slow down"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	err = classifyGeminiError(&googleapi.Error{Code: 403, Message: "key invalid"})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T", err)
	}
	plain := errors.New("dial tcp: no route")
	if got := classifyGeminiError(plain); !errors.Is(got, plain) {
		t.Fatalf("expected wrapped transport error, got %v", got)
	}
}
