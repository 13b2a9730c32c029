package iep

import (
	"context"
	"encoding/json"

	"brightpath/internal/domain/models/iep"
)

// CreateVersionRequest is the input to VersionService.CreateVersion.
type CreateVersionRequest struct {
	StudentID  string          `json:"student_id"`
	SchoolYear string          `json:"school_year"`
	Content    json.RawMessage `json:"content"`
	UserID     string          `json:"-"`
}

// VersionService owns the version-allocation protocol: read the current
// maximum for (student, school year), insert max+1 linked to its parent,
// and retry on a lost race. Callers never pick version numbers.
type VersionService interface {
	// CreateVersion allocates the next version number for the key and
	// persists a new immutable version. Safe under concurrent callers.
	CreateVersion(ctx context.Context, req *CreateVersionRequest) (*iep.Version, error)

	// GetVersion retrieves one version by ID.
	GetVersion(ctx context.Context, id string) (*iep.Version, error)

	// GetLatestVersion returns the highest-numbered version for the key,
	// or a not-found error if none exists.
	GetLatestVersion(ctx context.Context, studentID, schoolYear string) (*iep.Version, error)

	// GetVersionHistory returns all versions for the key ordered by
	// version ascending.
	GetVersionHistory(ctx context.Context, studentID, schoolYear string) ([]iep.Version, error)

	// FinalizeVersion marks a draft version final. Content and numbering
	// are immutable; only the status field changes.
	FinalizeVersion(ctx context.Context, id string) (*iep.Version, error)
}
