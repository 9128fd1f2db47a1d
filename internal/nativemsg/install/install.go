// Package install registers a native messaging host with a browser.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Browser selects the manifest flavour and install location.
type Browser int

const (
	Firefox Browser = iota
	Chrome
)

func (b Browser) String() string {
	switch b {
	case Firefox:
		return "firefox"
	case Chrome:
		return "chrome"
	}
	return fmt.Sprintf("Browser(%d)", int(b))
}

// ParseBrowser parses a browser name as accepted on the command line.
func ParseBrowser(s string) (Browser, error) {
	switch s {
	case "firefox":
		return Firefox, nil
	case "chrome":
		return Chrome, nil
	}
	return 0, fmt.Errorf("unknown browser %q, want firefox or chrome", s)
}

// Manifest models the native messaging host manifest JSON.
//
// Firefox identifies callers by extension ID (AllowedExtensions), Chrome by
// origin URL (AllowedOrigins).  See:
// https://developer.mozilla.org/en-US/docs/Mozilla/Add-ons/WebExtensions/Native_manifests
// https://developer.chrome.com/docs/extensions/develop/concepts/native-messaging
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Typ               string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
}

// manifestType is the (only supported) value for the "type" field in the
// manifest.
const manifestType = "stdio"

// Marshal returns on-disk encoding of the manifest.
func (m Manifest) Marshal() ([]byte, error) {
	m.Typ = manifestType
	return json.MarshalIndent(m, "", "  ")
}

// Filename is the appropriate name for the manifest file (with no path).
func (m Manifest) Filename() string {
	return m.Name + ".json"
}

// Validate checks that the manifest grants access the way b expects.
func (m Manifest) Validate(b Browser) error {
	switch {
	case m.Name == "":
		return errors.New("manifest has no name")
	case !filepath.IsAbs(m.Path):
		return fmt.Errorf("host path %q is not absolute", m.Path)
	case b == Firefox && len(m.AllowedExtensions) == 0:
		return errors.New("firefox manifests need at least one allowed extension")
	case b == Firefox && len(m.AllowedOrigins) > 0:
		return errors.New("firefox manifests take extension IDs, not origins")
	case b == Chrome && len(m.AllowedOrigins) == 0:
		return errors.New("chrome manifests need at least one allowed origin")
	case b == Chrome && len(m.AllowedExtensions) > 0:
		return errors.New("chrome manifests take origins, not extension IDs")
	}
	return nil
}

// install writes the serialized manifest buffer to the given path, creating
// the parent directory if needed.
func install(name string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf(`creating manifest dir: %w`, err)
	}
	if err := os.WriteFile(name, buf, 0o644); err != nil {
		return fmt.Errorf(`writing manifest: %w`, err)
	}
	return nil
}
