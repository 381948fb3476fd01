// Package migrations embeds the PostgreSQL schema of the credential service.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
