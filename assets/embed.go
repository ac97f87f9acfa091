package assets

import (
	_ "embed"
)

// IndexHTML is the bridge test page served at "/". It opens and closes
// scans over the HTTP API and prints the WebSocket event stream.
//
//go:embed index.html
var IndexHTML []byte
