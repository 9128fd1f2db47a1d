package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/p00ya/userscript-bridge/internal/nativemsg/install"
)

// stringList is a repeatable flag.  validate, if set, checks each value.
type stringList struct {
	values   []string
	validate func(string) error
}

var _ pflag.Value = (*stringList)(nil)

func (ss *stringList) String() string {
	return strings.Join(ss.values, ", ")
}

// Set appends the value to the list.
func (ss *stringList) Set(value string) error {
	if ss.validate != nil {
		if err := ss.validate(value); err != nil {
			return err
		}
	}
	ss.values = append(ss.values, value)
	return nil
}

func (ss *stringList) Type() string { return "stringList" }

func validateOrigin(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return errors.New("invalid URL")
	}
	return nil
}

func validateName(name string) (ok bool) {
	ok, _ = regexp.MatchString(`^([a-z0-9_]+)(\.[a-z0-9_]+)*$`, name)
	return
}

var (
	installSystem     bool
	installBrowser    string
	installDesc       string
	installOrigins    = stringList{validate: validateOrigin}
	installExtensions stringList
)

var installCmd = &cobra.Command{
	Use:   "install NAME BINARY",
	Short: "Register the host binary with a browser",
	Long: "Writes the native messaging manifest for NAME pointing at BINARY.\n" +
		"Firefox manifests list extension IDs (-e), Chrome manifests list origins (-o).",
	Args: cobra.ExactArgs(2),
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.BoolVar(&installSystem, "system", false, "Install system-wide (instead of for current user)")
	f.StringVarP(&installBrowser, "browser", "b", "firefox", "Browser: firefox or chrome")
	f.StringVarP(&installDesc, "description", "d", "Serves local user scripts", "Host description")
	f.VarP(&installOrigins, "origin", "o", "Allowed-origin URL (chrome).  Repeat flag for multiple URLs")
	f.VarP(&installExtensions, "extension", "e", "Allowed extension ID (firefox).  Repeat flag for multiple IDs")
	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	browser, err := install.ParseBrowser(installBrowser)
	if err != nil {
		return err
	}

	name := args[0]
	if !validateName(name) {
		return fmt.Errorf("invalid host name %q", name)
	}
	binary := args[1]
	switch fi, err := os.Stat(binary); {
	case err != nil:
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: accessing binary: %v\n", err)
	case fi.Mode()&0100 == 0:
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: binary %s is not executable\n", binary)
	}
	absPath, err := filepath.Abs(binary)
	if err != nil {
		return wrapErr("resolving absolute path to "+binary, err)
	}

	m := install.Manifest{
		Name:              name,
		Description:       installDesc,
		Path:              absPath,
		AllowedOrigins:    installOrigins.values,
		AllowedExtensions: installExtensions.values,
	}

	var path string
	if installSystem {
		path, err = install.System(browser, m)
	} else {
		path, err = install.CurrentUser(browser, m)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s manifest for %s to %s\n", browser, name, path)
	return nil
}
