// Package appfs embeds non-Go assets needed at runtime: database migrations,
// email templates and the common-passwords list.
package appfs

import "embed"

//go:embed assets migrations templates
var FS embed.FS
