// Package resources embeds the default configuration and the application schema.
package resources

import (
	"embed"
	"io/fs"
)

// ApplicationYAML is the configuration compiled into the binary.
//
//go:embed application.yaml
var ApplicationYAML []byte

//go:embed migrations
var migrations embed.FS

// Migrations returns the application schema migrations, one directory per database type.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
