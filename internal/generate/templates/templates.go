// Package templates embeds the skeletons of the generated files.
package templates

import "embed"

//go:embed *.tmpl
var FS embed.FS
