package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient calls Google's Generative Language API through the official SDK.
// A fresh SDK client is opened per call so no connection state outlives a request.
type GeminiClient struct {
	apiKey  string
	timeout time.Duration
	opts    []option.ClientOption
}

// NewGeminiClient returns a runtime bound to apiKey. timeout bounds each call.
func NewGeminiClient(apiKey string, timeout time.Duration, opts ...option.ClientOption) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{apiKey: apiKey, timeout: timeout, opts: opts}
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	configureGemini(model, req)
	system, turns := SplitSystem(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	parts := make([]genai.Part, 0, len(turns))
	for _, m := range turns {
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	text := geminiText(resp)
	if text == "" {
		return nil, ErrEmptyReply
	}
	out := &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: text}}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func configureGemini(model *genai.GenerativeModel, req GenerateRequest) {
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.TopK > 0 {
		model.SetTopK(int32(req.TopK))
	}
	if req.TopP != nil {
		model.SetTopP(float32(*req.TopP))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.ResponseFormat == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// classifyGeminiError maps SDK HTTP failures onto the package error types.
func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("gemini generate: %w", err)
	}
	apiErr := &APIError{StatusCode: gerr.Code, Message: gerr.Message}
	switch {
	case gerr.Code == 401 || gerr.Code == 403:
		return &AuthError{APIError: apiErr}
	case gerr.Code == 429:
		return &RateLimitError{APIError: apiErr}
	case gerr.Code == 404:
		return &ModelNotFoundError{APIError: apiErr}
	case gerr.Code == 400:
		return &BadRequestError{APIError: apiErr}
	case gerr.Code >= 500:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}
