package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/pipeline"
	"github.com/KaramelBytes/datask-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askJSON     bool
	askShowCode bool
)

var askCmd = &cobra.Command{
	Use:   "ask <file> <question...>",
	Short: "Answer a question about a CSV or Excel file",
	Example: `  datask ask staff.csv "Which department does Ana Lima work in?"
  datask ask sales.xlsx How many orders were shipped in March --show-code
  datask ask sales.xlsx "average price per region" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		logger := newLogger(c)
		question := strings.Join(args[1:], " ")
		svc, providerName, err := serviceFor(c, logger, question)
		if err != nil {
			return err
		}
		ans, err := svc.Analyze(cmd.Context(), args[0], question)
		if err != nil {
			return explain(err, providerName)
		}
		return printAnswer(cmd, ans)
	},
}

func printAnswer(cmd *cobra.Command, ans pipeline.Answer) error {
	out := cmd.OutOrStdout()
	if askJSON {
		b, err := utils.PrettyJSON(map[string]any{
			"stage":      ans.Stage,
			"answer":     ans.Text,
			"expression": ans.Expression,
			"confidence": ans.Confidence,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	} else {
		if ans.LoadNote != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "✓", ans.LoadNote)
		}
		if askShowCode && ans.Expression != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Expression (confidence %.2f): %s\n", ans.Confidence, ans.Expression)
		}
		if ans.Stage != pipeline.StageLoadFailed {
			fmt.Fprintln(out, ans.Text)
		}
	}
	if ans.Stage == pipeline.StageLoadFailed {
		return errors.New(strings.TrimPrefix(ans.Text, "Error: "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the stage, answer, expression and confidence as JSON")
	askCmd.Flags().BoolVar(&askShowCode, "show-code", false, "print the generated expression to stderr")
}
