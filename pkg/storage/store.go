package storage

// Store is durable key/value storage for serialized blobs.
// Get returns nil data and a nil error when the key has never been written.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	Close() error
}
