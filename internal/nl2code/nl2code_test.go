package nl2code

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/expr"
	"github.com/KaramelBytes/datask-cli/internal/schema"
)

type stubRuntime struct {
	replies []string
	err     error
	calls   []ai.GenerateRequest
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	reply := ""
	if len(s.replies) > 0 {
		reply, s.replies = s.replies[0], s.replies[1:]
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: reply}}}}, nil
}

func staffSchema() schema.Description {
	return schema.Description{
		Columns: []string{"Person", "Dept"},
		Details: []schema.ColumnDetail{{Name: "Person", DType: "object", Unique: 3}, {Name: "Dept", DType: "object", Unique: 2}},
	}
}

func TestGateThreshold(t *testing.T) {
	cases := []struct {
		conf float64
		want bool
	}{{0.71, true}, {0.7, false}, {0.2, false}, {1, true}, {0, false}}
	for _, tc := range cases {
		d := Gate(Result{Expression: "x", Confidence: tc.conf})
		assert.Equal(t, tc.want, d.Accepted, "confidence %v", tc.conf)
		if d.Accepted {
			assert.Equal(t, "x", d.Expression)
		} else {
			assert.Equal(t, "x", d.Message)
		}
	}
}

func TestQueryTranslatorRequestShape(t *testing.T) {
	rt := &stubRuntime{replies: []string{`{"query":"q","pandas_query":"df['Dept'].nunique()","confidence":0.9}`}}
	tr := NewQueryTranslator(rt, DefaultTranslateSampling("gemini-2.0-flash"), nil)

	d, err := tr.Suggest(context.Background(), Request{Question: "How many departments?", Schema: staffSchema()})
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, "df['Dept'].nunique()", d.Expression)

	require.Len(t, rt.calls, 1)
	req := rt.calls[0]
	assert.Equal(t, "gemini-2.0-flash", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.1, *req.Temperature)
	assert.Equal(t, 64, req.TopK)
	require.NotNil(t, req.TopP)
	assert.Equal(t, 0.96, *req.TopP)
	assert.Equal(t, ai.FormatJSON, req.ResponseFormat)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, ai.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "How many departments?", req.Messages[1].Content)

	system := req.Messages[0].Content
	assert.Contains(t, system, "loc,iloc,replace,fillna,drop,apply")
	assert.Contains(t, system, "Table name: df")
	assert.Contains(t, system, "['Person', 'Dept']")
	assert.Contains(t, system, `"confidence": 0.85`)
	assert.Contains(t, system, `"confidence": 0.2`)
}

func TestQueryTranslatorRejection(t *testing.T) {
	rt := &stubRuntime{replies: []string{"```json\n{\"query\":\"hi\",\"pandas_query\":\"Ask me about your data.\",\"confidence\":0.2}\n```"}}
	d, err := NewQueryTranslator(rt, DefaultTranslateSampling("m"), nil).Suggest(context.Background(), Request{Question: "hi"})
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, "Ask me about your data.", d.Message)
}

func TestTranslateParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":           "I think the answer is df.head()",
		"missing confidence": `{"query":"q","pandas_query":"df.head()"}`,
		"missing expression": `{"query":"q","confidence":0.9}`,
		"wrong type":         `{"query":"q","pandas_query":"df.head()","confidence":"high"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			rt := &stubRuntime{replies: []string{reply}}
			_, err := NewQueryTranslator(rt, DefaultTranslateSampling("m"), nil).Suggest(context.Background(), Request{Question: "q"})
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, reply, pe.Raw)
			assert.NotEmpty(t, pe.Error())
		})
	}
}

func TestTranslateTransportErrorIsNotParseError(t *testing.T) {
	rt := &stubRuntime{err: &ai.ServerError{APIError: &ai.APIError{StatusCode: 503, Message: "down"}}}
	_, err := NewQueryTranslator(rt, DefaultTranslateSampling("m"), nil).Translate(context.Background(), Request{Question: "q"})
	require.Error(t, err)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
	var se *ai.ServerError
	assert.True(t, errors.As(err, &se))
}

func TestEmptyReplyIsAnError(t *testing.T) {
	rt := &stubRuntime{replies: []string{"  "}}
	_, err := NewQueryTranslator(rt, DefaultTranslateSampling("m"), nil).Translate(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, ai.ErrEmptyReply)
}

func TestVisualTranslator(t *testing.T) {
	rt := &stubRuntime{replies: []string{`{"query":"q","visual_code":"sns.countplot(x='Dept', data=df)","confidence":0.9}`}}
	d, err := NewVisualTranslator(rt, DefaultTranslateSampling("m"), nil).Suggest(context.Background(), Request{Question: "plot depts", Schema: staffSchema()})
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, "sns.countplot(x='Dept', data=df)", d.Expression)

	system := rt.calls[0].Messages[0].Content
	assert.Contains(t, system, "plt")
	assert.Contains(t, system, "sns")
	assert.Contains(t, system, FallbackPlot)
	assert.Contains(t, system, "Unique values")
	assert.NotContains(t, system, "['Person', 'Dept']")

	rt = &stubRuntime{replies: []string{`{"query":"q","pandas_query":"x","confidence":0.9}`}}
	_, err = NewVisualTranslator(rt, DefaultTranslateSampling("m"), nil).Suggest(context.Background(), Request{Question: "q"})
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestComposerSuccessAndFailure(t *testing.T) {
	rt := &stubRuntime{replies: []string{" Ana works in Sales 🎉 ", "Sorry, I could not answer that 🙏"}}
	c := NewComposer(rt, DefaultComposeSampling("gemini-1.5-flash"), nil)

	got, err := c.Compose(context.Background(), "Where does Ana work?", expr.Outcome{Value: "Sales"})
	require.NoError(t, err)
	assert.Equal(t, "Ana works in Sales 🎉", got)
	req := rt.calls[0]
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)
	assert.Nil(t, req.TopP)
	assert.Equal(t, ai.FormatText, req.ResponseFormat)
	assert.Equal(t, "User question: Where does Ana work?\nAnswer: Sales", req.Messages[1].Content)

	_, err = c.Compose(context.Background(), "Where does Ana work?", expr.Outcome{Err: &expr.ExecutionError{Msg: "KeyError: 'Persn'"}})
	require.NoError(t, err)
	user := rt.calls[1].Messages[1].Content
	assert.True(t, strings.Contains(user, "Answer: FAILED"))
	assert.Contains(t, user, "KeyError: 'Persn'")
	assert.Contains(t, rt.calls[1].Messages[0].Content, "Never invent an answer")
}

func TestComposerPropagatesModelFailure(t *testing.T) {
	rt := &stubRuntime{err: &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad key"}}}
	_, err := NewComposer(rt, DefaultComposeSampling("m"), nil).Compose(context.Background(), "q", expr.Outcome{Value: int64(1)})
	var ae *ai.AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestOversizedPromptWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reply := `{"query":"q","pandas_query":"len(df)","confidence":0.9}`

	rt := &stubRuntime{replies: []string{reply}}
	_, err := NewQueryTranslator(rt, DefaultTranslateSampling("phi3:mini-4k-instruct"), logger).
		Suggest(context.Background(), Request{Question: strings.Repeat("wide ", 4000), Schema: staffSchema()})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "prompt may exceed model context window")
	assert.Contains(t, logs.String(), `"context_tokens":4096`)

	logs.Reset()
	rt = &stubRuntime{replies: []string{reply}}
	_, err = NewQueryTranslator(rt, DefaultTranslateSampling("phi3:mini-4k-instruct"), logger).
		Suggest(context.Background(), Request{Question: "How many rows?", Schema: staffSchema()})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "context window")

	rt = &stubRuntime{replies: []string{reply}}
	_, err = NewQueryTranslator(rt, DefaultTranslateSampling("not-in-catalog"), logger).
		Suggest(context.Background(), Request{Question: strings.Repeat("wide ", 4000), Schema: staffSchema()})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "context window")
}

func TestStripMarkdown(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdown("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdown("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripMarkdown(`  {"a":1} `))
}
