package bolt

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"
	bbolt "go.etcd.io/bbolt"

	"github.com/quantonganh/newsletter"
)

// DB represents a database
type DB struct {
	path    string
	stormDB *storm.DB
}

// NewDB returns new database
func NewDB(path string) *DB {
	return &DB{
		path: path,
	}
}

// Open opens the bolt file and creates the subscriber indexes
func (db *DB) Open() error {
	if db.path == "" {
		return errors.New("path required")
	}

	stormDB, err := storm.Open(db.path, storm.BoltOptions(0600, &bbolt.Options{Timeout: time.Second}))
	if err != nil {
		return errors.Errorf("failed to open %s: %v", db.path, err)
	}
	db.stormDB = stormDB

	if err := db.stormDB.Init(&newsletter.Subscriber{}); err != nil {
		return errors.Errorf("failed to init subscriber bucket: %v", err)
	}

	return nil
}

// Close closes database connection
func (db *DB) Close() error {
	if db.stormDB != nil {
		return db.stormDB.Close()
	}

	return nil
}
