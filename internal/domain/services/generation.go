package services

import (
	"context"
	"encoding/json"
)

// GenerateRequest asks the generation pipeline for draft IEP content.
type GenerateRequest struct {
	StudentID  string
	SchoolYear string
	// Parameters are pipeline-specific knobs (source documents, tone,
	// section selection). Opaque to the versioning core.
	Parameters map[string]string
}

// Generator produces document content for a new IEP version. The real
// implementation calls the AI pipeline; development deployments use the
// lorem provider. Either way the versioning core only sees opaque JSON.
type Generator interface {
	// Name identifies the provider in logs and job status messages.
	Name() string

	// Generate returns the content payload for a new version. Blocking;
	// honors ctx cancellation.
	Generate(ctx context.Context, req *GenerateRequest) (json.RawMessage, error)
}
