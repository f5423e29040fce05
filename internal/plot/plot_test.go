package plot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datask-cli/internal/expr"
	"github.com/KaramelBytes/datask-cli/internal/table"
)

func staff(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.FromColumns(
		[]string{"Person", "Dept", "Age", "Salary"},
		[][]any{
			{"Ana", "Bo", "Cy", "Di"},
			{"Sales", "Ops", "Sales", "HR"},
			{30, 41, 25, 38},
			{85000.0, 62000.0, 71000.0, 90000.0},
		},
	)
	require.NoError(t, err)
	return tb
}

func TestPieFromValueCounts(t *testing.T) {
	code := "counts = df['Dept'].value_counts()\nplt.pie(counts, labels=counts.index, autopct='%1.1f%%', startangle=140)\nplt.title('Departments')"
	fig, err := Execute(code, staff(t))
	require.NoError(t, err)
	require.Len(t, fig.Charts, 1)
	c := fig.Charts[0]
	assert.Equal(t, KindPie, c.Kind)
	assert.Equal(t, "Departments", c.Title)
	assert.Equal(t, []string{"Sales", "Ops", "HR"}, c.Categories)
	assert.Equal(t, []float64{2, 1, 1}, c.Series[0].Values)
}

func TestCountplotAndBarplot(t *testing.T) {
	fig, err := Execute("sns.countplot(x='Dept', data=df)\nsns.barplot(x='Dept', y='Salary', data=df)", staff(t))
	require.NoError(t, err)
	require.Len(t, fig.Charts, 2)

	count := fig.Charts[0]
	assert.Equal(t, KindBar, count.Kind)
	assert.Equal(t, []string{"Sales", "Ops", "HR"}, count.Categories)
	assert.Equal(t, []float64{2, 1, 1}, count.Series[0].Values)

	bar := fig.Charts[1]
	assert.Equal(t, []float64{78000, 62000, 90000}, bar.Series[0].Values)
	assert.Equal(t, "Dept", bar.XLabel)
	assert.Equal(t, "Salary", bar.YLabel)
}

func TestCountplotHorizontal(t *testing.T) {
	fig, err := Execute("sns.countplot(y='Dept', data=df)", staff(t))
	require.NoError(t, err)
	assert.Equal(t, KindBarH, fig.Charts[0].Kind)
}

func TestPairplotUsesNumericColumns(t *testing.T) {
	fig, err := Execute("sns.pairplot(df)", staff(t))
	require.NoError(t, err)
	// Age and Salary: one histogram each plus one scatter.
	require.Len(t, fig.Charts, 3)
	assert.Equal(t, KindHist, fig.Charts[0].Kind)
	assert.Equal(t, KindScatter, fig.Charts[1].Kind)
	assert.Len(t, fig.Charts[1].Series[0].Points, 4)
	assert.Equal(t, KindHist, fig.Charts[2].Kind)
}

func TestPairplotWithoutNumericColumns(t *testing.T) {
	tb, err := table.FromColumns([]string{"Name"}, [][]any{{"a", "b"}})
	require.NoError(t, err)
	_, err = Execute("sns.pairplot(df)", tb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no numeric columns")
}

func TestBarLineScatterHist(t *testing.T) {
	code := "plt.figure(figsize=(8, 6))\nplt.xlabel('Who')\nplt.bar(df['Person'], df['Salary'])\nplt.plot(df['Age'])\nplt.scatter(df['Age'], df['Salary'])\nplt.hist(df['Age'], bins=2)\nplt.tight_layout()\nplt.show()"
	fig, err := Execute(code, staff(t))
	require.NoError(t, err)
	require.Len(t, fig.Charts, 4)
	assert.Equal(t, "Who", fig.Charts[0].XLabel)
	assert.Equal(t, []string{"Ana", "Bo", "Cy", "Di"}, fig.Charts[0].Categories)
	assert.Equal(t, []string{"0", "1", "2", "3"}, fig.Charts[1].Categories)
	assert.Equal(t, [2]float64{30, 85000}, fig.Charts[2].Series[0].Points[0])
	assert.Equal(t, []float64{2, 2}, fig.Charts[3].Series[0].Values)
}

func TestExecuteErrors(t *testing.T) {
	cases := map[string]string{
		"unknown function": "plt.imshow(df)",
		"unknown module":   "os.system('ls')",
		"missing column":   "sns.countplot(x='Nope', data=df)",
		"shape mismatch":   "plt.bar(['a'], [1, 2])",
		"mutation":         "df.drop('Age')",
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Execute(code, staff(t))
			require.Error(t, err)
			var ee *expr.ExecutionError
			assert.True(t, errors.As(err, &ee), "got %T", err)
		})
	}
}

func TestNothingDrawn(t *testing.T) {
	_, err := Execute("plt.title('x')", staff(t))
	assert.ErrorIs(t, err, ErrNothingDrawn)
}

func TestFiguresAreIndependent(t *testing.T) {
	tb := staff(t)
	first, err := Execute("sns.countplot(x='Dept', data=df)", tb)
	require.NoError(t, err)
	second, err := Execute("plt.hist(df['Age'])", tb)
	require.NoError(t, err)
	require.Len(t, first.Charts, 1)
	require.Len(t, second.Charts, 1)
	assert.Equal(t, KindBar, first.Charts[0].Kind)
	assert.Equal(t, KindHist, second.Charts[0].Kind)
}

func TestClfClearsCharts(t *testing.T) {
	fig, err := Execute("plt.hist(df['Age'])\nplt.clf()\nsns.countplot(x='Dept', data=df)", staff(t))
	require.NoError(t, err)
	require.Len(t, fig.Charts, 1)
	assert.Equal(t, KindBar, fig.Charts[0].Kind)
}

func TestBinCounts(t *testing.T) {
	cats, counts := binCounts([]float64{1, 2, 3, 4}, 3)
	assert.Len(t, cats, 3)
	assert.Equal(t, []float64{1, 1, 2}, counts)

	_, counts = binCounts([]float64{5, 5}, 2)
	assert.Equal(t, 2.0, counts[0]+counts[1])

	cats, counts = binCounts(nil, 4)
	assert.Empty(t, cats)
	assert.Empty(t, counts)
}

func TestRenderHTML(t *testing.T) {
	fig, err := Execute("sns.countplot(x='Dept', data=df)\nplt.title('Headcount')", staff(t))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, fig.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "Headcount")
	assert.Contains(t, fig.Summary(), "bar \"Headcount\"")
}
