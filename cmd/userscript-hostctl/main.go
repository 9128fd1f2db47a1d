// package main implements a command-line utility for installing and
// inspecting the userscript native messaging host.
package main

import (
	"os"
)

import "github.com/p00ya/userscript-bridge/internal/cli"

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
