// Package runstore holds completed run records in memory.
// There is no persistence and no eviction: a gateway process restart
// loses run history, and long-lived processes accumulate one entry per
// run for their lifetime. Both are accepted for this deployment's scale
// per spec.
package runstore

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/codeexec/gateway/pkg/types"
)

// Store is a concurrent map of run id to run record, safe for use by
// many orchestrator goroutines at once without an external mutex.
type Store struct {
	records *xsync.MapOf[string, *types.RunRecord]
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: xsync.NewMapOf[string, *types.RunRecord]()}
}

// Put inserts or overwrites the record for rec.ID.
func (s *Store) Put(rec *types.RunRecord) {
	s.records.Store(rec.ID, rec)
}

// Get returns the record for id, or an error if no such run exists.
func (s *Store) Get(id string) (*types.RunRecord, error) {
	rec, ok := s.records.Load(id)
	if !ok {
		return nil, fmt.Errorf("runstore: run %q not found", id)
	}
	return rec, nil
}
