package scoring

import "errors"

// ErrInvalidTable is returned when a compatibility table fails validation.
var ErrInvalidTable = errors.New("invalid compatibility table")
