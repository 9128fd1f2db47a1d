// Package cli implements the userscript-hostctl commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/p00ya/userscript-bridge/internal/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "userscript-hostctl",
	Short: "Manage the userscript native messaging host",
	Long: "Installs the userscript host's browser manifest and inspects the scripts it serves.\n" +
		"The host itself is started by the browser, not by this tool.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: $"+config.EnvPath+" or ~/.config/userscript-manager/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(home)
	}
	return config.Load(path, home)
}

// stderrLogger reports skipped files while keeping stdout for results.
func stderrLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func wrapErr(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
