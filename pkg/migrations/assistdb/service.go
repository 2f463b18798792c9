// Package assistdb holds all the migrations for the assistant database
package assistdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the assistant database
var Migrations = migrate.NewMigrations()
