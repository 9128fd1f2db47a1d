package install

import (
	"fmt"
	"os"
	"path/filepath"
)

import "golang.org/x/sys/windows/registry"

// keyPath is the path under the registry root where each browser looks up
// native messaging hosts.
var keyPath = map[Browser]string{
	Firefox: `SOFTWARE\Mozilla\NativeMessagingHosts`,
	Chrome:  `SOFTWARE\Google\Chrome\NativeMessagingHosts`,
}

// CurrentUser writes a manifest in the current directory, and registers it
// in the Windows registry under HKEY_CURRENT_USER.
func CurrentUser(b Browser, m Manifest) (string, error) {
	return writeManifestAndRegister(b, m, registry.CURRENT_USER)
}

// System writes a manifest in the current directory, and registers it in
// the Windows registry under HKEY_LOCAL_MACHINE.
func System(b Browser, m Manifest) (string, error) {
	return writeManifestAndRegister(b, m, registry.LOCAL_MACHINE)
}

func writeManifestAndRegister(b Browser, m Manifest, root registry.Key) (string, error) {
	if err := m.Validate(b); err != nil {
		return "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	manifestPath, err := writeManifest(cwd, m)
	if err != nil {
		return "", err
	}
	return manifestPath, register(root, keyPath[b], m.Name, manifestPath)
}

func writeManifest(dir string, m Manifest) (string, error) {
	buf, err := m.Marshal()
	if err != nil {
		return "", err
	}

	manifestPath := filepath.Join(dir, m.Filename())
	if err = install(manifestPath, buf); err != nil {
		return "", err
	}

	return manifestPath, nil
}

// register points the browser's registry key for the host at manifestPath.
func register(root registry.Key, base, name, manifestPath string) error {
	p := fmt.Sprintf(`%s\%s`, base, name)
	k, _, err := registry.CreateKey(root, p, registry.CREATE_SUB_KEY|registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue("", manifestPath)
}
