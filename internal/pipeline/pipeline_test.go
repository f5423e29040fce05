package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/expr"
	"github.com/KaramelBytes/datask-cli/internal/nl2code"
)

type stubSuggester struct {
	decision nl2code.Decision
	err      error
	calls    []nl2code.Request
}

func (s *stubSuggester) Suggest(_ context.Context, req nl2code.Request) (nl2code.Decision, error) {
	s.calls = append(s.calls, req)
	return s.decision, s.err
}

type stubComposer struct {
	reply    string
	err      error
	outcomes []expr.Outcome
}

func (c *stubComposer) Compose(_ context.Context, _ string, o expr.Outcome) (string, error) {
	c.outcomes = append(c.outcomes, o)
	return c.reply, c.err
}

func writeStaff(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staff.csv")
	content := "Person,Dept,Age\nAna,Sales,30\nBo,Ops,41\nCy,Sales,25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func accepted(expression string) *stubSuggester {
	return &stubSuggester{decision: nl2code.Decision{Accepted: true, Expression: expression, Confidence: 0.9}}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	q := accepted("df[df['Person'] == 'Ana']['Dept'].unique()[0]")
	c := &stubComposer{reply: "Ana works in Sales 🎉"}
	svc := New(q, nil, c, nil)

	ans, err := svc.Analyze(context.Background(), writeStaff(t), "Where does Ana work?")
	require.NoError(t, err)
	assert.Equal(t, StageAnswered, ans.Stage)
	assert.Equal(t, "Ana works in Sales 🎉", ans.Text)
	assert.Equal(t, "CSV file loaded successfully.", ans.LoadNote)

	require.Len(t, q.calls, 1)
	assert.Equal(t, []string{"Person", "Dept", "Age"}, q.calls[0].Schema.Columns)
	require.Len(t, c.outcomes, 1)
	assert.True(t, c.outcomes[0].OK())
	assert.Equal(t, "Sales", c.outcomes[0].Value)
}

func TestBlankQuestionMakesNoModelCalls(t *testing.T) {
	q, v, c := accepted("len(df)"), accepted("sns.pairplot(df)"), &stubComposer{}
	svc := New(q, v, c, nil)
	path := writeStaff(t)

	ans, err := svc.Analyze(context.Background(), path, "   \n")
	require.NoError(t, err)
	assert.Equal(t, StageEmptyQuestion, ans.Stage)
	assert.Equal(t, EmptyQuestionMessage, ans.Text)

	p, err := svc.Visualize(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, StageEmptyQuestion, p.Stage)

	assert.Empty(t, q.calls)
	assert.Empty(t, v.calls)
	assert.Empty(t, c.outcomes)
}

func TestLoadFailure(t *testing.T) {
	q := accepted("len(df)")
	svc := New(q, nil, &stubComposer{}, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ans, err := svc.Analyze(context.Background(), path, "how many rows?")
	require.NoError(t, err)
	assert.Equal(t, StageLoadFailed, ans.Stage)
	assert.Contains(t, ans.Text, "Error: ")
	assert.Contains(t, ans.Text, ".txt")
	assert.Empty(t, q.calls)
}

func TestRejectionIsReturnedVerbatim(t *testing.T) {
	q := &stubSuggester{decision: nl2code.Decision{Message: "Let's talk about your data 🤨", Confidence: 0.2}}
	c := &stubComposer{}
	ans, err := New(q, nil, c, nil).Analyze(context.Background(), writeStaff(t), "How are you?")
	require.NoError(t, err)
	assert.Equal(t, StageRejected, ans.Stage)
	assert.Equal(t, "Let's talk about your data 🤨", ans.Text)
	assert.Empty(t, c.outcomes)
}

func TestEvaluationErrorReachesComposer(t *testing.T) {
	q := accepted("df['Persn']")
	c := &stubComposer{reply: "Sorry, I could not find that 🙏"}
	ans, err := New(q, nil, c, nil).Analyze(context.Background(), writeStaff(t), "who?")
	require.NoError(t, err)
	assert.Equal(t, StageAnsweredWithError, ans.Stage)
	assert.Equal(t, "Sorry, I could not find that 🙏", ans.Text)
	require.Len(t, c.outcomes, 1)
	require.False(t, c.outcomes[0].OK())
	assert.Contains(t, c.outcomes[0].Err.Msg, "KeyError")
}

func TestParseErrorIsTerminal(t *testing.T) {
	q := &stubSuggester{err: &nl2code.ParseError{Raw: "nope", Err: errors.New("invalid JSON")}}
	c := &stubComposer{}
	ans, err := New(q, nil, c, nil).Analyze(context.Background(), writeStaff(t), "q")
	require.NoError(t, err)
	assert.Equal(t, StageTranslateFailed, ans.Stage)
	assert.Contains(t, ans.Text, "invalid JSON")
	assert.Empty(t, c.outcomes)
}

func TestModelFailuresPropagate(t *testing.T) {
	q := &stubSuggester{err: &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429, Message: "slow down"}}}
	_, err := New(q, nil, &stubComposer{}, nil).Analyze(context.Background(), writeStaff(t), "q")
	var rl *ai.RateLimitError
	assert.ErrorAs(t, err, &rl)

	c := &stubComposer{err: &ai.ServerError{APIError: &ai.APIError{StatusCode: 500, Message: "boom"}}}
	_, err = New(accepted("len(df)"), nil, c, nil).Analyze(context.Background(), writeStaff(t), "q")
	var se *ai.ServerError
	assert.ErrorAs(t, err, &se)
}

func TestVisualizeRefusedDrawsNothing(t *testing.T) {
	v := &stubSuggester{decision: nl2code.Decision{Message: "Not a chart request", Confidence: 0.1}}
	p, err := New(nil, v, nil, nil).Visualize(context.Background(), writeStaff(t), "hello")
	require.NoError(t, err)
	assert.Equal(t, StageRefused, p.Stage)
	require.NotNil(t, p.Figure)
	assert.True(t, p.Figure.Empty())
}

func TestVisualizePlotted(t *testing.T) {
	v := accepted("sns.countplot(x='Dept', data=df)\nplt.title('Headcount')")
	p, err := New(nil, v, nil, nil).Visualize(context.Background(), writeStaff(t), "plot departments")
	require.NoError(t, err)
	assert.Equal(t, StagePlotted, p.Stage)
	require.Len(t, p.Figure.Charts, 1)
	assert.Equal(t, "Headcount", p.Figure.Charts[0].Title)
}

func TestVisualizeFailureIsCaught(t *testing.T) {
	v := accepted("plt.imshow(df)")
	p, err := New(nil, v, nil, nil).Visualize(context.Background(), writeStaff(t), "plot")
	require.NoError(t, err)
	assert.Equal(t, StagePlotFailed, p.Stage)
	assert.Nil(t, p.Figure)
	assert.Contains(t, p.Text, "imshow")
}

func TestVisualizeParseErrorIsTerminal(t *testing.T) {
	v := &stubSuggester{err: &nl2code.ParseError{Raw: "{", Err: errors.New("unexpected end of JSON input")}}
	p, err := New(nil, v, nil, nil).Visualize(context.Background(), writeStaff(t), "plot")
	require.NoError(t, err)
	assert.Equal(t, StageTranslateFailed, p.Stage)
	assert.Nil(t, p.Figure)
}

func TestFiguresDoNotLeakBetweenRequests(t *testing.T) {
	path := writeStaff(t)
	first, err := New(nil, accepted("plt.hist(df['Age'])"), nil, nil).Visualize(context.Background(), path, "ages")
	require.NoError(t, err)
	second, err := New(nil, accepted("sns.countplot(x='Dept', data=df)"), nil, nil).Visualize(context.Background(), path, "depts")
	require.NoError(t, err)
	require.Len(t, first.Figure.Charts, 1)
	require.Len(t, second.Figure.Charts, 1)
	assert.NotSame(t, first.Figure, second.Figure)
}
