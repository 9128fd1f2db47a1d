package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/p00ya/userscript-bridge/internal/userscript"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Show the metadata parsed from a script and anything that was ignored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		meta, diags := userscript.Parse(string(data))
		if diags == nil {
			diags = []userscript.Diagnostic{}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Metadata    userscript.Metadata     `json:"metadata"`
			Diagnostics []userscript.Diagnostic `json:"diagnostics"`
		}{meta, diags})
	},
}

func init() {
	RootCmd.AddCommand(parseCmd)
}
