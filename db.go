package newsletter

// Database is implemented by the storage backends
type Database interface {
	Open() error
	Close() error
}
