package tray

import _ "embed"

//go:embed icon.ico
var iconData []byte
