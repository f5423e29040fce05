package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/utils"
	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and the default translate/compose pair per provider",
	Example: `  datask models
  datask models --provider ollama
  datask models --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		list := ai.CatalogFor(provider)
		out := cmd.OutOrStdout()
		if modelsJSON {
			b, err := utils.PrettyJSON(list)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tDEFAULT")
		for _, m := range list {
			pair := ai.DefaultModels(m.Provider)
			role := ""
			switch m.Name {
			case pair.Translate:
				role = "translate"
				if pair.Compose == m.Name {
					role = "translate,compose"
				}
			case pair.Compose:
				role = "compose"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.Name, m.Provider, m.ContextTokens, role)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalog as JSON")
}
