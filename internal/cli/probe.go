package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/p00ya/userscript-bridge/internal/nativemsg"
	"github.com/p00ya/userscript-bridge/internal/session"
)

var (
	probeGetScripts bool
	probeTimeout    time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe BINARY [ARG...]",
	Short: "Start a host the way the browser does and check that it answers",
	Long: "Starts BINARY with its stdin and stdout connected as a native messaging\n" +
		"channel, sends TEST_CONNECTION (and optionally GET_SCRIPTS), and prints the\n" +
		"messages the host sends back.",
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVarP(&probeGetScripts, "get-scripts", "g", false, "Also request the script list")
	probeCmd.Flags().DurationVarP(&probeTimeout, "timeout", "t", 5*time.Second, "Give up after this long")
	RootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()

	host := exec.CommandContext(ctx, args[0], args[1:]...)
	host.Stderr = cmd.ErrOrStderr()
	stdin, err := host.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := host.StdoutPipe()
	if err != nil {
		return err
	}
	if err := host.Start(); err != nil {
		return wrapErr("starting host", err)
	}

	err = probe(ctx, nativemsg.NewConn(stdout, stdin), probeGetScripts, cmd.OutOrStdout())

	// Closing stdin is how the browser tells a host to exit.
	stdin.Close()
	if waitErr := host.Wait(); err == nil && waitErr != nil {
		err = wrapErr("host exited", waitErr)
	}
	return err
}

// received is the result of one Receive call.
type received struct {
	msg nativemsg.Message
	err error
}

// probe exchanges messages with a host over conn, printing everything the
// host sends until the expected replies have arrived.
func probe(ctx context.Context, conn *nativemsg.Conn, getScripts bool, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan received)
	go func() {
		for {
			m, err := conn.Receive()
			select {
			case msgs <- received{m, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	waitFor := func(want string) error {
		for {
			select {
			case <-ctx.Done():
				return fmt.Errorf("waiting for %s: %w", want, ctx.Err())
			case r := <-msgs:
				if r.err != nil {
					return wrapErr("reading from host", r.err)
				}
				describe(w, r.msg)
				if r.msg.Type == want {
					return nil
				}
			}
		}
	}

	if _, err := conn.Send(map[string]string{"type": session.TypeTestConnection}); err != nil {
		return err
	}
	if err := waitFor(session.TypeConnectionOK); err != nil {
		return err
	}

	if getScripts {
		if _, err := conn.Send(map[string]string{"type": session.TypeGetScripts}); err != nil {
			return err
		}
		if err := waitFor(session.TypeScriptsUpdate); err != nil {
			return err
		}
	}
	return nil
}

// describe prints a one-line summary of a message, plus one line per script
// for updates.
func describe(w io.Writer, m nativemsg.Message) {
	if m.Type != session.TypeScriptsUpdate {
		fmt.Fprintf(w, "%s\n", m.Raw)
		return
	}
	var update session.ScriptsUpdate
	if err := json.Unmarshal(m.Raw, &update); err != nil {
		fmt.Fprintf(w, "%s (unreadable: %v)\n", m.Type, err)
		return
	}
	fmt.Fprintf(w, "%s: %d scripts\n", m.Type, len(update.Scripts))
	for _, r := range update.Scripts {
		fmt.Fprintf(w, "  %s\t%s\t%d bytes\n", r.Name, r.Metadata.String("name"), len(r.Content))
	}
}
