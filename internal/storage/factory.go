package storage

import "fmt"

// Backend names accepted in the store configuration.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// Options selects and locates the snapshot store backing one engine run.
type Options struct {
	Kind string // KindMemory or KindSQLite; empty picks DefaultStoreKind
	Path string // database file for the sqlite backend
}

// NewStore builds the snapshot store for opts. The sqlite backend exists
// only in builds tagged `sqlite`; untagged builds reject it so a
// misconfigured deployment fails loudly instead of silently dropping
// snapshots.
func NewStore(opts Options) (Store, error) {
	kind := opts.Kind
	if kind == "" {
		kind = DefaultStoreKind()
	}
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported releases backends that hold resources; the sqlite store
// keeps a database handle open across snapshots, the memory store has
// nothing to release.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
