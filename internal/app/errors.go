package service

import "errors"

// Sentinel error kinds for the service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflicting request")
)
