// Package migrations embeds the conversation-store schema so the binary can
// migrate from any working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
