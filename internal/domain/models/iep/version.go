package iep

import (
	"encoding/json"
	"time"
)

// Version statuses. Opaque to the versioning core; the generation pipeline
// owns the meaning.
const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Version is one immutable snapshot of a student's IEP for a school year.
// Versions are numbered 1..N per (student_id, school_year) with no gaps;
// each version > 1 points at the version it supersedes.
type Version struct {
	ID              string          `json:"id" db:"id"`
	StudentID       string          `json:"student_id" db:"student_id"`
	SchoolYear      string          `json:"school_year" db:"school_year"` // e.g. "2025-2026"
	Version         int             `json:"version" db:"version"`
	ParentVersionID *string         `json:"parent_version_id" db:"parent_version_id"` // nil only for version 1
	Status          string          `json:"status" db:"status"`
	Content         json.RawMessage `json:"content" db:"content"`
	CreatedBy       string          `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
