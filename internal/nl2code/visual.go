package nl2code

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/schema"
)

// FallbackPlot is what the model is told to emit for requests that are not
// about visualization.
const FallbackPlot = "sns.pairplot(df)"

// VisualTranslator turns a question into plotting statements.
type VisualTranslator struct {
	t translator
}

func NewVisualTranslator(rt ai.Runtime, s Sampling, logger *slog.Logger) *VisualTranslator {
	return &VisualTranslator{t: translator{
		rt:       rt,
		sampling: s,
		logger:   logger,
		role:     "visualize",
		field:    "visual_code",
		prompt:   VisualPrompt,
	}}
}

// Translate asks the model for {"query","visual_code","confidence"}.
func (v *VisualTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	return v.t.translate(ctx, req)
}

// Suggest is Translate followed by Gate. A rejected Decision means there
// is nothing to draw.
func (v *VisualTranslator) Suggest(ctx context.Context, req Request) (Decision, error) {
	r, err := v.Translate(ctx, req)
	if err != nil {
		return Decision{}, err
	}
	return Gate(r), nil
}

// VisualPrompt builds the system instruction for the visualization path.
func VisualPrompt(d schema.Description) string {
	var b strings.Builder
	b.WriteString("You are a helpful visualization assistant that converts the user's request into plotting code.\n")
	b.WriteString("Only answer questions about the dataset. Never allow any change to the data.\n")
	fmt.Fprintf(&b, "Never use these operations: %s\n", strings.Join(DeniedOperations, ","))
	b.WriteString("The plotting code must match the column information below.\n")
	fmt.Fprintf(&b, "For any request that is not a visualization request, write %s.\n\n", FallbackPlot)
	b.WriteString("Libraries you may use: matplotlib.pyplot (plt), seaborn (sns)\n")
	fmt.Fprintf(&b, "Table name: %s\n", TableName)
	fmt.Fprintf(&b, "Column information:\n%s\n\n", d.Summary())
	b.WriteString("Reply with one JSON object in exactly this format.\n\n")
	b.WriteString("Examples:\n")
	b.WriteString(`{"query": "Show the departments in a pie chart", "visual_code": "counts = df['Dept'].value_counts()\nplt.pie(counts, labels=counts.index, autopct='%1.1f%%', startangle=140)", "confidence": 0.85}` + "\n")
	fmt.Fprintf(&b, `{"query": "How are you today?", "visual_code": "%s", "confidence": 0.85}`+"\n", FallbackPlot)
	return b.String()
}
