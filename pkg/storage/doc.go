// Package storage provides the key-value backends the journal persists to:
// BoltStore (a bbolt file at <data_dir>/tableside.db, bucket "journal"),
// RedisStore (keys namespaced as <prefix>:<key>) and MemoryStore.
package storage
