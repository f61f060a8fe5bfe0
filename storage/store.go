// Package storage persists champion networks so a finished run can be replayed.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// Record kinds written by the trainer.
const (
	KindChampion = "champion" // best-ever network of a run
	KindLast     = "last"     // best network of the most recent generation
)

// Record is one persisted network together with where it came from.
type Record struct {
	RunID      string
	Kind       string
	Generation int
	Fitness    float64
	Network    nn.Snapshot
	SavedAt    time.Time
}

// Store defines persistence operations for champion networks. Saving a record
// replaces any earlier record with the same run and kind.
type Store interface {
	Init(ctx context.Context) error
	SaveNetwork(ctx context.Context, record Record) error
	GetNetwork(ctx context.Context, runID, kind string) (Record, bool, error)
	Close() error
}

// NewStore builds a store backend by name. path is the directory for "file"
// and the database file for "sqlite"; it is ignored for "memory".
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func validateRecord(record Record) error {
	if record.RunID == "" {
		return fmt.Errorf("record run id is required")
	}
	if record.Kind == "" {
		return fmt.Errorf("record kind is required")
	}
	return nil
}
