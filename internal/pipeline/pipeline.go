// Package pipeline runs one question against one table file: load, gate on
// the model's confidence, execute, and explain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/expr"
	"github.com/KaramelBytes/datask-cli/internal/nl2code"
	"github.com/KaramelBytes/datask-cli/internal/observability"
	"github.com/KaramelBytes/datask-cli/internal/plot"
	"github.com/KaramelBytes/datask-cli/internal/schema"
	"github.com/KaramelBytes/datask-cli/internal/table"
	"github.com/KaramelBytes/datask-cli/internal/utils"
)

// Stage names the terminal step a request reached.
type Stage string

const (
	StageLoadFailed        Stage = "load_failed"
	StageEmptyQuestion     Stage = "empty_question"
	StageTranslateFailed   Stage = "translate_failed"
	StageRejected          Stage = "rejected"
	StageAnswered          Stage = "answered"
	StageAnsweredWithError Stage = "answered_with_error"
	StageRefused           Stage = "refused"
	StagePlotFailed        Stage = "plot_failed"
	StagePlotted           Stage = "plotted"
)

// EmptyQuestionMessage is returned for a blank question.
const EmptyQuestionMessage = "Please enter a question about your data."

// rawLogTokens caps how much of an undecodable reply is logged.
const rawLogTokens = 256

// Suggester translates a question and gates it on confidence.
type Suggester interface {
	Suggest(ctx context.Context, req nl2code.Request) (nl2code.Decision, error)
}

// AnswerComposer phrases an evaluation outcome for the user.
type AnswerComposer interface {
	Compose(ctx context.Context, question string, outcome expr.Outcome) (string, error)
}

// LoadFunc reads a table file and returns a short success note.
type LoadFunc func(path string) (*table.Table, string, error)

// Answer is the result of the analysis path.
type Answer struct {
	Text       string
	Stage      Stage
	Expression string
	Confidence float64
	LoadNote   string
}

// Plot is the result of the visualization path. Figure is non-nil for
// StageRefused (empty) and StagePlotted.
type Plot struct {
	Text       string
	Stage      Stage
	Code       string
	Confidence float64
	LoadNote   string
	Figure     *plot.Figure
}

// Service wires the translators, the evaluator and the composer.
type Service struct {
	Load     LoadFunc
	Query    Suggester
	Visual   Suggester
	Composer AnswerComposer
	Logger   *slog.Logger
}

// New returns a Service that loads files with table.Load.
func New(query, visual Suggester, composer AnswerComposer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Load: table.Load, Query: query, Visual: visual, Composer: composer, Logger: logger}
}

func (s *Service) finish(ctx context.Context, path string, stage Stage, attrs ...any) {
	observability.ObservePipelineOutcome(path, string(stage))
	args := append([]any{"request_id", observability.RequestIDFromContext(ctx), "path", path, "stage", string(stage)}, attrs...)
	s.Logger.InfoContext(ctx, "request finished", args...)
}

// prepare loads the table and checks the question. A non-empty stage means
// the request is already terminal.
func (s *Service) prepare(ctx context.Context, route, path, question string) (*table.Table, string, Stage, string) {
	t, note, err := s.Load(path)
	if err != nil {
		s.finish(ctx, route, StageLoadFailed, "error", err)
		return nil, "", StageLoadFailed, "Error: " + err.Error()
	}
	s.Logger.DebugContext(ctx, "table loaded", "request_id", observability.RequestIDFromContext(ctx), "rows", t.NumRows(), "cols", t.NumCols())
	if strings.TrimSpace(question) == "" {
		s.finish(ctx, route, StageEmptyQuestion)
		return t, note, StageEmptyQuestion, EmptyQuestionMessage
	}
	return t, note, "", ""
}

// suggest runs a translator. A malformed reply is terminal rather than an
// error; transport failures are returned.
func (s *Service) suggest(ctx context.Context, route string, tr Suggester, t *table.Table, question string) (nl2code.Decision, Stage, string, error) {
	d, err := tr.Suggest(ctx, nl2code.Request{Question: question, Schema: schema.Describe(t)})
	if err != nil {
		var pe *nl2code.ParseError
		if errors.As(err, &pe) {
			s.finish(ctx, route, StageTranslateFailed, "error", err, "raw", utils.TruncateToTokenLimit(pe.Raw, rawLogTokens))
			return d, StageTranslateFailed, "Error: could not read the model reply: " + err.Error(), nil
		}
		return d, "", "", fmt.Errorf("translate question: %w", err)
	}
	return d, "", "", nil
}

// Analyze answers a question about the table at path.
func (s *Service) Analyze(ctx context.Context, path, question string) (Answer, error) {
	ctx, _ = observability.EnsureRequestID(ctx)
	const route = "analyze"

	t, note, stage, text := s.prepare(ctx, route, path, question)
	if stage != "" {
		return Answer{Text: text, Stage: stage, LoadNote: note}, nil
	}
	d, stage, text, err := s.suggest(ctx, route, s.Query, t, question)
	if err != nil {
		return Answer{LoadNote: note}, err
	}
	if stage != "" {
		return Answer{Text: text, Stage: stage, LoadNote: note}, nil
	}
	if !d.Accepted {
		s.finish(ctx, route, StageRejected, "confidence", d.Confidence)
		return Answer{Text: d.Message, Stage: StageRejected, Confidence: d.Confidence, LoadNote: note}, nil
	}

	outcome := expr.Evaluate(d.Expression, t)
	stage = StageAnswered
	if !outcome.OK() {
		stage = StageAnsweredWithError
		s.Logger.WarnContext(ctx, "expression failed", "request_id", observability.RequestIDFromContext(ctx), "expression", d.Expression, "error", outcome.Err.Msg)
	}
	reply, err := s.Composer.Compose(ctx, question, outcome)
	if err != nil {
		return Answer{Expression: d.Expression, Confidence: d.Confidence, LoadNote: note}, fmt.Errorf("compose answer: %w", err)
	}
	s.finish(ctx, route, stage, "confidence", d.Confidence, "expression", d.Expression)
	return Answer{Text: reply, Stage: stage, Expression: d.Expression, Confidence: d.Confidence, LoadNote: note}, nil
}

// Visualize draws a chart for a question about the table at path. Each call
// gets its own Figure.
func (s *Service) Visualize(ctx context.Context, path, question string) (Plot, error) {
	ctx, _ = observability.EnsureRequestID(ctx)
	const route = "visualize"

	t, note, stage, text := s.prepare(ctx, route, path, question)
	if stage != "" {
		return Plot{Text: text, Stage: stage, LoadNote: note}, nil
	}
	d, stage, text, err := s.suggest(ctx, route, s.Visual, t, question)
	if err != nil {
		return Plot{LoadNote: note}, err
	}
	if stage != "" {
		return Plot{Text: text, Stage: stage, LoadNote: note}, nil
	}
	if !d.Accepted {
		s.finish(ctx, route, StageRefused, "confidence", d.Confidence)
		return Plot{Text: d.Message, Stage: StageRefused, Confidence: d.Confidence, LoadNote: note, Figure: &plot.Figure{}}, nil
	}

	fig, err := plot.Execute(d.Expression, t)
	if err != nil {
		s.finish(ctx, route, StagePlotFailed, "error", err, "code", d.Expression)
		return Plot{Text: "Error: " + err.Error(), Stage: StagePlotFailed, Code: d.Expression, Confidence: d.Confidence, LoadNote: note}, nil
	}
	s.finish(ctx, route, StagePlotted, "charts", len(fig.Charts))
	return Plot{Text: fig.Summary(), Stage: StagePlotted, Code: d.Expression, Confidence: d.Confidence, LoadNote: note, Figure: fig}, nil
}
