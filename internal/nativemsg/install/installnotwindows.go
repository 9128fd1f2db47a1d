//go:build darwin || linux

package install

import (
	"os/user"
	"path/filepath"
)

// CurrentUser installs the manifest for the calling user and returns the
// manifest's path.
func CurrentUser(b Browser, m Manifest) (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return User(b, m, usr.HomeDir)
}

// User installs a manifest to the user-specific directory under homeDir.
func User(b Browser, m Manifest, homeDir string) (string, error) {
	if err := m.Validate(b); err != nil {
		return "", err
	}
	buf, err := m.Marshal()
	if err != nil {
		return "", err
	}
	name := filepath.Join(homeDir, userSubDir[b], m.Filename())
	return name, install(name, buf)
}

// System installs a manifest to the system-wide directory.
func System(b Browser, m Manifest) (string, error) {
	if err := m.Validate(b); err != nil {
		return "", err
	}
	buf, err := m.Marshal()
	if err != nil {
		return "", err
	}
	name := filepath.Join(systemDir[b], m.Filename())
	return name, install(name, buf)
}
