// Package lorem is a mock generation provider that produces lorem ipsum
// IEP drafts. Used for development and tests without real pipeline
// credentials.
package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	loremgen "github.com/bozaro/golorem"

	"brightpath/internal/domain/services"
)

// Generator is a mock implementation of services.Generator.
type Generator struct {
	generator *loremgen.Lorem
	delay     time.Duration
}

// New creates a lorem generator. delay simulates the latency of a real
// generation call; 0 disables it (tests).
func New(delay time.Duration) *Generator {
	return &Generator{
		generator: loremgen.New(),
		delay:     delay,
	}
}

// Name returns the provider name.
func (g *Generator) Name() string {
	return "lorem"
}

// draft is the content shape this provider emits. Opaque to the
// versioning core; only the review UI and tests look inside.
type draft struct {
	PresentLevels  string   `json:"present_levels"`
	Goals          []string `json:"goals"`
	Accommodations []string `json:"accommodations"`
	GeneratedBy    string   `json:"generated_by"`
}

// Generate produces a draft IEP content payload.
func (g *Generator) Generate(ctx context.Context, req *services.GenerateRequest) (json.RawMessage, error) {
	if req.StudentID == "" || req.SchoolYear == "" {
		return nil, fmt.Errorf("lorem generator: student id and school year are required")
	}

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	goalCount := 3
	if v, ok := req.Parameters["goal_count"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 12 {
			goalCount = n
		}
	}

	d := draft{
		PresentLevels: g.generator.Paragraph(3, 5),
		GeneratedBy:   g.Name(),
	}
	for i := 0; i < goalCount; i++ {
		d.Goals = append(d.Goals, g.generator.Sentence(8, 16))
	}
	for i := 0; i < 2; i++ {
		d.Accommodations = append(d.Accommodations, g.generator.Sentence(5, 10))
	}

	return json.Marshal(&d)
}
