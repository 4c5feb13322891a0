package wire

import "embed"

// Source holds the runtime sources, written next to generated code when the
// runtime is copied instead of imported.
//
//go:embed wire.go decoder.go errors.go
var Source embed.FS
