// Package kinds holds the closed registry of job kinds and their
// per-kind defaults, loaded from an embedded YAML file at startup.
package kinds

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	models "brightpath/internal/domain/models/jobs"
)

//go:embed config/kinds.yaml
var configFiles embed.FS

// KindSettings are the operational defaults for one job kind.
type KindSettings struct {
	Kind            string `yaml:"kind"`
	Description     string `yaml:"description"`
	DefaultPriority int    `yaml:"default_priority"`
	// MaxAllocationAttempts bounds the version-allocation retry loop for
	// kinds that write versions. Must stay small (3-5): retries exist to
	// resolve a narrow commit race, not to paper over real failures.
	MaxAllocationAttempts int `yaml:"max_allocation_attempts"`
	// RetentionDays is how long terminal jobs of this kind are kept
	// before a purge job may delete them.
	RetentionDays int `yaml:"retention_days"`
}

// Registry maps job kinds to their settings. Immutable after load.
type Registry struct {
	kinds map[models.Kind]*KindSettings
	order []models.Kind
}

type registryFile struct {
	Kinds []KindSettings `yaml:"kinds"`
}

// NewRegistry loads the embedded kind registry.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/kinds.yaml")
	if err != nil {
		return nil, fmt.Errorf("read kinds config: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal kinds config: %w", err)
	}
	if len(file.Kinds) == 0 {
		return nil, fmt.Errorf("kinds config declares no kinds")
	}

	r := &Registry{kinds: make(map[models.Kind]*KindSettings)}
	for i := range file.Kinds {
		ks := &file.Kinds[i]
		kind := models.Kind(ks.Kind)
		if _, dup := r.kinds[kind]; dup {
			return nil, fmt.Errorf("duplicate kind %q in kinds config", ks.Kind)
		}
		r.kinds[kind] = ks
		r.order = append(r.order, kind)
	}

	return r, nil
}

// Get returns the settings for a kind, or an error for unknown kinds.
func (r *Registry) Get(kind models.Kind) (*KindSettings, error) {
	ks, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown job kind: %s", kind)
	}
	return ks, nil
}

// Known reports whether the kind is registered.
func (r *Registry) Known(kind models.Kind) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Kinds returns all registered kinds in declaration order.
func (r *Registry) Kinds() []models.Kind {
	out := make([]models.Kind, len(r.order))
	copy(out, r.order)
	return out
}
