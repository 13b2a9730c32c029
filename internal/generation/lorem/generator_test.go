package lorem

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"brightpath/internal/domain/services"
)

func TestGenerateContentShape(t *testing.T) {
	g := New(0)

	raw, err := g.Generate(context.Background(), &services.GenerateRequest{
		StudentID:  "student-1",
		SchoolYear: "2025-2026",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var d draft
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal content: %v", err)
	}
	if d.PresentLevels == "" {
		t.Fatal("expected present levels text")
	}
	if len(d.Goals) != 3 {
		t.Fatalf("expected default 3 goals, got %d", len(d.Goals))
	}
	if len(d.Accommodations) != 2 {
		t.Fatalf("expected 2 accommodations, got %d", len(d.Accommodations))
	}
	if d.GeneratedBy != "lorem" {
		t.Fatalf("expected generated_by lorem, got %q", d.GeneratedBy)
	}
}

func TestGenerateGoalCountParameter(t *testing.T) {
	g := New(0)

	cases := []struct {
		param string
		want  int
	}{
		{"7", 7},
		{"0", 3},   // out of range, fall back
		{"13", 3},  // above ceiling
		{"abc", 3}, // not a number
	}
	for _, tc := range cases {
		raw, err := g.Generate(context.Background(), &services.GenerateRequest{
			StudentID:  "student-1",
			SchoolYear: "2025-2026",
			Parameters: map[string]string{"goal_count": tc.param},
		})
		if err != nil {
			t.Fatalf("goal_count=%q: %v", tc.param, err)
		}
		var d draft
		if err := json.Unmarshal(raw, &d); err != nil {
			t.Fatal(err)
		}
		if len(d.Goals) != tc.want {
			t.Fatalf("goal_count=%q: expected %d goals, got %d", tc.param, tc.want, len(d.Goals))
		}
	}
}

func TestGenerateRequiresKey(t *testing.T) {
	g := New(0)

	if _, err := g.Generate(context.Background(), &services.GenerateRequest{SchoolYear: "2025-2026"}); err == nil {
		t.Fatal("expected error without student id")
	}
	if _, err := g.Generate(context.Background(), &services.GenerateRequest{StudentID: "student-1"}); err == nil {
		t.Fatal("expected error without school year")
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	g := New(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := g.Generate(ctx, &services.GenerateRequest{
		StudentID:  "student-1",
		SchoolYear: "2025-2026",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not short-circuit the delay")
	}
}
