package rowperm

import (
	"errors"
	"fmt"
)

// Sentinel causes for InvalidEntityError. Callers can match them with
// errors.Is to distinguish the individual validation failures.
var (
	ErrMissingUser     = errors.New("user must not be empty")
	ErrMissingEntityID = errors.New("entity id must not be empty")
	ErrNotIdentifiable = errors.New("entity must expose an id")
)

// InvalidEntityError reports that a grant targeted an unusable user or
// entity. It is the only validation failure surfaced as an error; permission
// checks fail closed instead.
type InvalidEntityError struct {
	Cause error
}

func (e *InvalidEntityError) Error() string {
	if e == nil || e.Cause == nil {
		return "invalid entity"
	}
	return e.Cause.Error()
}

func (e *InvalidEntityError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func invalidEntity(cause error) error {
	return &InvalidEntityError{Cause: cause}
}

// StoreError wraps a persistence failure with the entity context it occurred
// under. Retry policy belongs to the caller; the store never retries.
type StoreError struct {
	Op          string
	EntityClass string
	EntityID    string
	Err         error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("row permission store: %s %s[%s]: %v", e.Op, e.EntityClass, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
