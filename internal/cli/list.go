package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p00ya/userscript-bridge/internal/userscript"
)

var listContent bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the scripts the host would send, as JSON",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listContent, "content", false, "Include script content")
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return wrapErr("loading config", err)
	}
	store := userscript.NewStore(cfg.ScriptsDir, stderrLogger(cmd.ErrOrStderr()))
	records, err := store.Scan()
	if err != nil {
		return err
	}
	return writeRecords(cmd, records, listContent)
}

func writeRecords(cmd *cobra.Command, records []userscript.Record, withContent bool) error {
	digest := userscript.Digest(records)
	if !withContent {
		for i := range records {
			records[i].Content = ""
		}
	}
	if records == nil {
		records = []userscript.Record{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d scripts, digest %s\n", len(records), digest)
	return nil
}
