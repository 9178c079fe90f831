// Package migrations embeds the cart schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
