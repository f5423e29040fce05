package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/pipeline"
	"github.com/KaramelBytes/datask-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	plotOutput   string
	plotShowCode bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <file> <question...>",
	Short: "Draw a chart for a question about a CSV or Excel file",
	Example: `  datask plot staff.csv "Show the departments in a pie chart"
  datask plot sales.xlsx "monthly revenue as a line chart" -o revenue.html`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		logger := newLogger(c)
		question := strings.Join(args[1:], " ")
		svc, providerName, err := serviceFor(c, logger, question)
		if err != nil {
			return err
		}
		p, err := svc.Visualize(cmd.Context(), args[0], question)
		if err != nil {
			return explain(err, providerName)
		}
		return writePlot(cmd, p, plotOutput)
	},
}

func writePlot(cmd *cobra.Command, p pipeline.Plot, output string) error {
	stderr := cmd.ErrOrStderr()
	if p.LoadNote != "" {
		fmt.Fprintln(stderr, "✓", p.LoadNote)
	}
	if plotShowCode && p.Code != "" {
		fmt.Fprintf(stderr, "Code (confidence %.2f):\n%s\n", p.Confidence, p.Code)
	}
	switch p.Stage {
	case pipeline.StagePlotted:
	case pipeline.StageLoadFailed, pipeline.StagePlotFailed, pipeline.StageTranslateFailed:
		return errors.New(strings.TrimPrefix(p.Text, "Error: "))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), p.Text)
		return nil
	}
	var buf bytes.Buffer
	if err := p.Figure.Render(&buf); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(output, buf.Bytes()); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), p.Text)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Chart saved to %s\n", output)
	return nil
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "chart.html", "HTML file to write the chart to")
	plotCmd.Flags().BoolVar(&plotShowCode, "show-code", false, "print the generated plotting code to stderr")
}
