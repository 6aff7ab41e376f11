// Package appfs exposes the repository's embedded static assets
// (email templates, database migrations).
package appfs

import "embed"

//go:embed all:assets migrations
var FS embed.FS
