// Package content carries the compiled-in drill definitions and the
// translation table used to localize drill copy.
package content

import "embed"

//go:embed *.json
var FS embed.FS
