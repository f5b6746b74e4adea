package location

import (
	"context"
	"errors"
	"fmt"
)

// Store errors shared by both backends.
var (
	// ErrNotFound is returned by Get and Update when no record matches
	// the given place ID. Delete treats a missing record as success.
	ErrNotFound = errors.New("location not found")

	// ErrAuthRequired is returned when a write is attempted without a
	// bearer credential.
	ErrAuthRequired = errors.New("authentication required")

	// ErrLocalImmutable is returned by the local store's Update: locally
	// saved records can only be deleted and recreated.
	ErrLocalImmutable = errors.New("locally saved locations cannot be edited")
)

// RemoteError is a non-2xx or transport failure from the production API.
// Status is zero for pure transport failures.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote API unreachable: %s", e.Message)
	}
	return fmt.Sprintf("remote API error (status %d): %s", e.Status, e.Message)
}

// LocalError is a serialization or storage failure in the device-local area.
type LocalError struct {
	Op  string
	Err error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("local storage %s failed: %v", e.Op, e.Err)
}

func (e *LocalError) Unwrap() error { return e.Err }

// Store is the narrow persistence contract shared by the remote and local
// backends. Exactly one implementation is authoritative at any time; the
// sync coordinator selects it on authentication-state transitions and never
// re-checks mid-operation.
type Store interface {
	// Create persists a new record and returns the stored version,
	// including any backend-assigned identifiers.
	Create(ctx context.Context, rec *Record) (*Record, error)

	// Get retrieves a record by place ID. Returns nil, nil when no
	// record matches (not an error).
	Get(ctx context.Context, placeID string) (*Record, error)

	// Update applies a patch to the record with the given place ID and
	// returns the stored version.
	Update(ctx context.Context, placeID string, patch *Record) (*Record, error)

	// Delete removes the record with the given place ID. Deleting a
	// record that does not exist is not an error.
	Delete(ctx context.Context, placeID string) error

	// List returns every record held by the backend.
	List(ctx context.Context) ([]*Record, error)
}
