package nl2code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/observability"
	"github.com/KaramelBytes/datask-cli/internal/schema"
	"github.com/KaramelBytes/datask-cli/internal/utils"
)

// ConfidenceThreshold is the gate: a translation is accepted only when its
// confidence is strictly greater.
const ConfidenceThreshold = 0.7

// DeniedOperations must never appear in generated code. The evaluator
// enforces this; the prompt only asks for it.
var DeniedOperations = []string{"loc", "iloc", "replace", "fillna", "drop", "apply"}

type Request struct {
	Question string
	Schema   schema.Description
}

// Result is a decoded structured reply. Expression is the generated code,
// or a human-readable refusal when Confidence is low.
type Result struct {
	Query      string
	Expression string
	Confidence float64
}

// Decision is the gate's verdict on a Result.
type Decision struct {
	Accepted   bool
	Expression string // accepted: code to run
	Message    string // rejected: the model's message, shown verbatim
	Confidence float64
}

// Gate accepts r iff its confidence exceeds ConfidenceThreshold.
func Gate(r Result) Decision {
	return gate(r, ConfidenceThreshold)
}

func gate(r Result, threshold float64) Decision {
	if r.Confidence > threshold {
		return Decision{Accepted: true, Expression: r.Expression, Confidence: r.Confidence}
	}
	return Decision{Message: r.Expression, Confidence: r.Confidence}
}

// ParseError reports a model reply that is not the expected structured
// object. It is distinct from a low-confidence rejection.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Sampling holds model identity and generation parameters for one role.
// Temperature is always sent, so 0 asks for greedy decoding. TopK 0 and a
// nil TopP leave the provider default.
type Sampling struct {
	Model       string
	Temperature float64
	TopK        int
	TopP        *float64
}

// DefaultTranslateSampling favours literal, reproducible output.
func DefaultTranslateSampling(model string) Sampling {
	return Sampling{Model: model, Temperature: 0.1, TopK: 64, TopP: ai.Float(0.96)}
}

// DefaultComposeSampling is warmer for free-text answers.
func DefaultComposeSampling(model string) Sampling {
	return Sampling{Model: model, Temperature: 0.7}
}

func (s Sampling) request(system, user string, format ai.ResponseFormat) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model: s.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: system},
			{Role: ai.RoleUser, Content: user},
		},
		Temperature:    ai.Float(s.Temperature),
		TopK:           s.TopK,
		TopP:           s.TopP,
		ResponseFormat: format,
	}
}

// call sends one request and times it under role.
func call(ctx context.Context, rt ai.Runtime, logger *slog.Logger, role string, req ai.GenerateRequest) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sections := make(map[string]string, len(req.Messages))
	for _, m := range req.Messages {
		sections[string(m.Role)] += m.Content
	}
	est := utils.TokenBreakdown(sections)
	logger.DebugContext(ctx, "model_call",
		slog.String("request_id", observability.RequestIDFromContext(ctx)),
		slog.String("role", role),
		slog.String("model", req.Model),
		slog.Int("system_tokens_est", est[string(ai.RoleSystem)]),
		slog.Int("user_tokens_est", est[string(ai.RoleUser)]),
	)
	prompt := est[string(ai.RoleSystem)] + est[string(ai.RoleUser)]
	if mi, ok := ai.LookupModel(req.Model); ok && prompt+req.MaxTokens > mi.ContextTokens {
		logger.WarnContext(ctx, "prompt may exceed model context window",
			slog.String("request_id", observability.RequestIDFromContext(ctx)),
			slog.String("role", role),
			slog.String("model", mi.Name),
			slog.Int("prompt_tokens_est", prompt),
			slog.Int("context_tokens", mi.ContextTokens),
		)
	}
	start := time.Now()
	resp, err := rt.Generate(ctx, req)
	observability.ObserveModelCall(role, req.Model, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%s model call: %w", role, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s model call: %w", role, ai.ErrEmptyReply)
	}
	return text, nil
}

// stripMarkdown removes a surrounding ``` fence, with or without a language tag.
func stripMarkdown(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], "{[") {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// decodeReply decodes {"query", <field>, "confidence"}. field and
// confidence are required.
func decodeReply(raw, field string) (Result, error) {
	body := stripMarkdown(raw)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return Result{}, &ParseError{Raw: raw, Err: fmt.Errorf("decode reply: %w", err)}
	}
	var r Result
	if q, ok := obj["query"]; ok {
		_ = json.Unmarshal(q, &r.Query)
	}
	expr, ok := obj[field]
	if !ok {
		return Result{}, &ParseError{Raw: raw, Err: fmt.Errorf("reply is missing %q", field)}
	}
	if err := json.Unmarshal(expr, &r.Expression); err != nil {
		return Result{}, &ParseError{Raw: raw, Err: fmt.Errorf("%q is not a string: %w", field, err)}
	}
	conf, ok := obj["confidence"]
	if !ok {
		return Result{}, &ParseError{Raw: raw, Err: errors.New(`reply is missing "confidence"`)}
	}
	if err := json.Unmarshal(conf, &r.Confidence); err != nil {
		return Result{}, &ParseError{Raw: raw, Err: fmt.Errorf(`"confidence" is not a number: %w`, err)}
	}
	return r, nil
}

// translator is the shared structured-reply call behind both translators.
type translator struct {
	rt       ai.Runtime
	sampling Sampling
	logger   *slog.Logger
	role     string
	field    string
	prompt   func(schema.Description) string
}

func (t *translator) translate(ctx context.Context, req Request) (Result, error) {
	system := t.prompt(req.Schema)
	raw, err := call(ctx, t.rt, t.logger, t.role, t.sampling.request(system, req.Question, ai.FormatJSON))
	if err != nil {
		return Result{}, err
	}
	return decodeReply(raw, t.field)
}
