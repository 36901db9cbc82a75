package service

import (
	"errors"
	"fmt"

	"mindplanner/internal/repository"
)

var (
	ErrNotFound         = repository.ErrNotFound
	ErrInvalidStatus    = errors.New("invalid activity status")
	ErrEmptyPatch       = errors.New("nothing to update")
	ErrNegativeDuration = errors.New("duration must not be negative")
)

// PartialMaterializationError reports a batch insert that stopped part way.
// The first Created rows exist in storage and were not rolled back.
type PartialMaterializationError struct {
	Created int
	Total   int
	GroupID string
	Err     error
}

func (e *PartialMaterializationError) Error() string {
	return fmt.Sprintf("%d of %d activities created: %v", e.Created, e.Total, e.Err)
}

func (e *PartialMaterializationError) Unwrap() error {
	return e.Err
}
