package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidKind   = errors.New("invalid entity kind")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrConflict      = errors.New("entity already exists")
	ErrClosed        = errors.New("store closed")
	ErrCorruptRecord = errors.New("corrupt record")
	ErrLocked        = errors.New("data directory locked by another process")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrNoDataDir     = errors.New("data directory required")
)
