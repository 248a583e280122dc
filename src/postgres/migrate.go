package postgres

import (
	"context"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Migrate applies every .sql file in files in name order, tracking applied
// versions in schema_migrations so restarts are safe.
func Migrate(ctx context.Context, files fs.FS) error {
	return DoQuery(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`)
		if err != nil {
			return errors.Wrap(err, "failed creating schema_migrations table")
		}

		names, err := fs.Glob(files, "*.sql")
		if err != nil {
			return errors.Wrap(err, "failed listing migration files")
		}
		sort.Strings(names)

		for _, name := range names {
			version := strings.TrimSuffix(name, ".sql")
			var applied bool
			if err := conn.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`,
				version).Scan(&applied); err != nil {
				return errors.Wrapf(err, "failed checking migration %s", version)
			}
			if applied {
				continue
			}
			ddl, err := fs.ReadFile(files, name)
			if err != nil {
				return errors.Wrapf(err, "failed reading migration %s", name)
			}
			if _, err := conn.Exec(ctx, string(ddl)); err != nil {
				return errors.Wrapf(err, "failed applying migration %s", name)
			}
			if _, err := conn.Exec(ctx,
				`INSERT INTO schema_migrations(version) VALUES ($1)`, version); err != nil {
				return errors.Wrapf(err, "failed recording migration %s", version)
			}
		}
		return nil
	})
}
