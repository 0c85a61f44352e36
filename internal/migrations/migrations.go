// Package migrations holds the schema for the identities and web sessions
// the front end keeps locally. Everything else lives on the backend API.
package migrations

import "embed"

// Files holds the numbered SQL files (001_init.sql, ...) applied in lexical
// order by store.ApplyMigrations.
//
//go:embed *.sql
var Files embed.FS
