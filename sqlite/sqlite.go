package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed migration/*.sql
var migrationFS embed.FS

// DB represents the database connection.
type DB struct {
	sqlDB  *sql.DB
	ctx    context.Context
	cancel func()

	path string
}

// NewDB returns new database
func NewDB(path string) *DB {
	db := &DB{
		path: path,
	}

	db.ctx, db.cancel = context.WithCancel(context.Background())

	return db
}

// Open opens the database and applies pending migrations
func (db *DB) Open() (err error) {
	if db.path == "" {
		return errors.New("path required")
	}

	if db.sqlDB != nil {
		return nil
	}

	if db.sqlDB, err = sql.Open("sqlite3", db.path+"?_busy_timeout=5000"); err != nil {
		return errors.Wrap(err, "sql.Open")
	}

	// a single writer avoids SQLITE_BUSY between concurrent upserts
	db.sqlDB.SetMaxOpenConns(1)

	if err := db.migrate(); err != nil {
		return errors.Wrap(err, "migrate")
	}

	return nil
}

func (db *DB) migrate() error {
	if _, err := db.sqlDB.ExecContext(db.ctx, `CREATE TABLE IF NOT EXISTS migrations (name TEXT PRIMARY KEY);`); err != nil {
		return errors.Wrap(err, "cannot create migrations table")
	}

	names, err := fs.Glob(migrationFS, "migration/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		if err := db.migrateFile(name); err != nil {
			return errors.Wrapf(err, "migration error: name=%q", name)
		}
	}

	return nil
}

func (db *DB) migrateFile(name string) error {
	tx, err := db.sqlDB.BeginTx(db.ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM migrations WHERE name = ?`, name).Scan(&n); err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	buf, err := fs.ReadFile(migrationFS, name)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(buf)); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO migrations (name) VALUES (?)`, name); err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes database connection
func (db *DB) Close() error {
	if db.sqlDB == nil {
		return nil
	}

	db.cancel()

	if err := db.sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}

	return nil
}
