package iep

import (
	"context"
	"encoding/json"

	"brightpath/internal/domain/models/iep"
)

// NewVersion carries the fields the caller controls when inserting a
// version row. Version number and parent linkage are supplied by the
// allocation protocol in the service layer, never by API callers.
type NewVersion struct {
	ID              string
	StudentID       string
	SchoolYear      string
	Version         int
	ParentVersionID *string
	Status          string
	Content         json.RawMessage
	CreatedBy       string
}

// VersionRepository defines data access for IEP version rows.
//
// Insert relies on the store's UNIQUE (student_id, school_year, version)
// constraint: a violation is returned wrapping domain.ErrVersionConflict
// so the caller's retry loop can re-derive the version number.
type VersionRepository interface {
	// GetHead returns the row holding the current maximum version for the
	// key, or nil if no version exists yet.
	GetHead(ctx context.Context, studentID, schoolYear string) (*iep.Version, error)

	// Insert creates a version row with the caller-chosen version number.
	Insert(ctx context.Context, v *NewVersion) (*iep.Version, error)

	// GetByID retrieves a single version.
	GetByID(ctx context.Context, id string) (*iep.Version, error)

	// ListByKey returns all versions for the key ordered by version ascending.
	ListByKey(ctx context.Context, studentID, schoolYear string) ([]iep.Version, error)

	// UpdateStatus changes only the status field of an existing version.
	// A row already holding the target status is a conflict, not a no-op.
	UpdateStatus(ctx context.Context, id, status string) error
}
