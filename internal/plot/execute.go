package plot

import (
	"errors"

	"github.com/KaramelBytes/datask-cli/internal/expr"
	"github.com/KaramelBytes/datask-cli/internal/table"
)

// ErrNothingDrawn is returned when the code ran but produced no chart.
var ErrNothingDrawn = errors.New("the plotting code did not draw anything")

// Execute runs plotting statements against t with df, plt and sns bound,
// and returns a fresh Figure holding what they drew.
func Execute(code string, t *table.Table) (*Figure, error) {
	fig := &Figure{}
	env := expr.NewEnv(t)
	env.Define("plt", fig.pyplot())
	env.Define("sns", fig.seaborn())
	if err := env.Exec(code); err != nil {
		return nil, err
	}
	if fig.Empty() {
		return nil, ErrNothingDrawn
	}
	return fig, nil
}
