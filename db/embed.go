// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// MenuSeed is the default menu used when no menu file is configured.
//
//go:embed seed/menu.json
var MenuSeed []byte
