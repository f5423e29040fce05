package nl2code

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/expr"
)

// composeInstruction sets the tone: short, warm, one trailing emoji.
const composeInstruction = `You are a friendly assistant that turns the user's question and the computed answer into a clear, warm reply. Always end your reply with an emoji.

Example:
User question: Who earns the highest salary?
Answer: Ahmet Celik
Reply: The highest salary goes to Ahmet Celik 💸`

const failureInstruction = `

Sometimes the computation fails. The message then starts with "Answer: FAILED" followed by the error. In that case apologise briefly, say the question could not be answered from the data, and suggest rephrasing it. Never invent an answer and never present the error text as data.`

// Composer phrases an evaluation Outcome as a natural-language reply.
type Composer struct {
	rt       ai.Runtime
	sampling Sampling
	logger   *slog.Logger
}

func NewComposer(rt ai.Runtime, s Sampling, logger *slog.Logger) *Composer {
	return &Composer{rt: rt, sampling: s, logger: logger}
}

// Compose returns the model's free-text reply. A failed outcome is sent
// with an explicit failure marker so the model apologises instead of
// treating the error as data. Model failures propagate.
func (c *Composer) Compose(ctx context.Context, question string, outcome expr.Outcome) (string, error) {
	text, err := call(ctx, c.rt, c.logger, "compose", c.sampling.request(composeInstruction+failureInstruction, ComposeMessage(question, outcome), ai.FormatText))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ComposeMessage renders the user turn for Compose.
func ComposeMessage(question string, outcome expr.Outcome) string {
	if !outcome.OK() {
		return fmt.Sprintf("User question: %s\nAnswer: FAILED\nError: %s", question, outcome.Err.Msg)
	}
	return fmt.Sprintf("User question: %s\nAnswer: %s", question, outcome.Text())
}
