// Package repository holds the directory entities and serves bulk reads in
// insertion order.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/teamform/internal/domain/model"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Store provides read/write access to the four entity collections.
type Store interface {
	// GetAll returns copies of every entity of kind in insertion order.
	GetAll(ctx context.Context, kind model.Kind) ([]model.Entity, error)

	// Get returns one entity. Returns ErrNotFound if the ID is unknown.
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)

	// Create stores a new entity. Returns ErrConflict if the ID is taken.
	Create(ctx context.Context, e model.Entity) error

	// Update replaces an existing entity, keeping its insertion position.
	Update(ctx context.Context, e model.Entity) error

	// Count returns the number of entities of kind.
	Count(ctx context.Context, kind model.Kind) (int, error)

	Close() error
}

// AssignID gives e a random ID when it has none and stamps its timestamps.
func AssignID(e model.Entity, now time.Time) {
	if strings.TrimSpace(e.GetID()) == "" {
		e.SetID(uuid.NewString())
	}
	e.Stamp(now)
}

// Open creates the store named by driver. File-backed drivers keep their
// data under dir and hold an exclusive lock on it until Close.
func Open(ctx context.Context, driver, dir string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(ctx, opts...), nil
	case DriverBadger:
		s, err := OpenBadgerStore(ctx, dir, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLiteStore(ctx, dir, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func checkEntity(e model.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil", ErrInvalidEntity)
	}
	if strings.TrimSpace(e.GetID()) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEntity)
	}
	return checkKind(e.Kind())
}

func checkKind(kind model.Kind) error {
	for _, k := range model.Kinds() {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}
