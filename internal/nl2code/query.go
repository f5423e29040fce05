package nl2code

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/schema"
)

// TableName is the fixed name generated code uses for the loaded table.
const TableName = "df"

// QueryTranslator turns a question into a single restricted expression.
type QueryTranslator struct {
	t translator
}

func NewQueryTranslator(rt ai.Runtime, s Sampling, logger *slog.Logger) *QueryTranslator {
	return &QueryTranslator{t: translator{
		rt:       rt,
		sampling: s,
		logger:   logger,
		role:     "translate",
		field:    "pandas_query",
		prompt:   QueryPrompt,
	}}
}

// Translate asks the model for {"query","pandas_query","confidence"}.
// A malformed reply is a *ParseError.
func (q *QueryTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	return q.t.translate(ctx, req)
}

// Suggest is Translate followed by Gate.
func (q *QueryTranslator) Suggest(ctx context.Context, req Request) (Decision, error) {
	r, err := q.Translate(ctx, req)
	if err != nil {
		return Decision{}, err
	}
	return Gate(r), nil
}

// QueryPrompt builds the system instruction for the analysis path.
func QueryPrompt(d schema.Description) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that converts the user's request into a single pandas expression.\n")
	b.WriteString("Only answer questions about the dataset. Never allow any change to the data.\n")
	b.WriteString("The expression must use the table name and column names given below.\n\n")
	fmt.Fprintf(&b, "Never use these operations: %s\n\n", strings.Join(DeniedOperations, ","))
	fmt.Fprintf(&b, "Table name: %s\n", TableName)
	fmt.Fprintf(&b, "Column names: %s\n\n", d.ColumnList())
	fmt.Fprintf(&b, "If the question is not about the dataset, set confidence below %.1f and put a short, friendly refusal in \"pandas_query\" instead of code.\n", ConfidenceThreshold)
	b.WriteString("Reply with one JSON object in exactly this format.\n\n")
	b.WriteString("Examples:\n")
	b.WriteString(`{"query": "Which department does Ana Lima work in?", "pandas_query": "df[df['Person'] == 'Ana Lima']['Dept'].unique()[0]", "confidence": 0.85}` + "\n")
	b.WriteString(`{"query": "How are you today?", "pandas_query": "Let's stick to your dataset, friend. Ask me something about it. 🤨", "confidence": 0.2}` + "\n")
	return b.String()
}
