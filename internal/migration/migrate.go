package migration

import (
	"database/sql"
	"embed"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run applies all pending migrations on the given connection. The schema is
// managed here rather than out of band so a fresh deployment only needs a
// reachable database.
func Run(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return nil
}
