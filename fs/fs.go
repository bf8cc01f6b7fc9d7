// Package appfs exposes the application's embedded assets:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS
