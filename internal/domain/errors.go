package domain

import "errors"

// Sentinel errors shared across layers. Wrap with fmt.Errorf("%w: ...")
// and match with errors.Is at the API boundary.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid caller input, rejected before any write.
	ErrValidation = errors.New("validation failed")
)
