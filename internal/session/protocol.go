package session

import "github.com/p00ya/userscript-bridge/internal/userscript"

// Message types sent by the browser extension.
const (
	TypeTestConnection = "TEST_CONNECTION"
	TypeGetScripts     = "GET_SCRIPTS"

	// TypeStartWatcher and TypeStopWatcher toggle unsolicited pushes; the
	// extension sends them when its auto-reload setting changes.
	TypeStartWatcher = "START_WATCHER"
	TypeStopWatcher  = "STOP_WATCHER"
)

// Message types sent by the host.
const (
	TypeConnectionOK  = "CONNECTION_OK"
	TypeScriptsUpdate = "SCRIPTS_UPDATE"
)

// ConnectionOK answers TEST_CONNECTION.
type ConnectionOK struct {
	Type string `json:"type"`
}

// ScriptsUpdate carries the complete current script set.
type ScriptsUpdate struct {
	Type    string              `json:"type"`
	Scripts []userscript.Record `json:"scripts"`
}
