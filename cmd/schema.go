package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datask-cli/internal/schema"
	"github.com/KaramelBytes/datask-cli/internal/table"
	"github.com/spf13/cobra"
)

var schemaSummary bool

var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Show the columns the model will see for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, note, err := table.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(cmd.ErrOrStderr(), "✓", note)
		fmt.Fprintf(out, "Rows: %d, Columns: %d\n", t.NumRows(), t.NumCols())
		d := schema.Describe(t)
		if schemaSummary {
			fmt.Fprintln(out, d.Summary())
			return nil
		}
		fmt.Fprintln(out, d.ColumnList())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaSummary, "summary", false, "show data types and unique value counts")
}
