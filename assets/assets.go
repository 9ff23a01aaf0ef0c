// Package assets embeds the files shipped with the binaries: SQL migrations and templates.
package assets

import "embed"

var (
	//go:embed migrations/*.sql
	Migrations embed.FS

	//go:embed all:templates
	Templates embed.FS
)

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	WebTemplatesDir   = "templates/web"
)
