// Package database contains the sqlite database holding tracking runs,
// artifact metadata and lineage.
package database

import (
	"database/sql"
	"embed"

	"github.com/apex/log"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/sqlite"
)

//go:embed migrations/*.sql
var efs embed.FS

// RunMigrations runs the database migrations.
func RunMigrations(sqlDB *sql.DB) error {
	log.Debugf("running migrations")
	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: efs,
		Root:       "migrations",
	}
	n, err := migrate.Exec(sqlDB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return err
	}
	log.Debugf("performed %d migrations", n)
	return nil
}

// Database is the handle to the metadata database.
type Database struct {
	sess db.Session
}

// Connect opens the database at path, creating it and running the
// migrations when needed. The caller must Close the database.
func Connect(path string) (*Database, error) {
	settings := sqlite.ConnectionURL{
		Database: path,
		Options:  map[string]string{"_foreign_keys": "1"},
	}
	sess, err := sqlite.Open(settings)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	sqlDB, ok := sess.Driver().(*sql.DB)
	if !ok {
		sess.Close()
		return nil, errors.New("unexpected database driver")
	}
	if err := RunMigrations(sqlDB); err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "running migrations")
	}
	return &Database{sess: sess}, nil
}

// Close closes the database.
func (d *Database) Close() error {
	return d.sess.Close()
}
