package kinds

import (
	"testing"

	models "brightpath/internal/domain/models/jobs"
)

func TestNewRegistryLoadsEmbeddedConfig(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if !r.Known(models.KindGenerateVersion) {
		t.Fatalf("expected %s to be registered", models.KindGenerateVersion)
	}
	if !r.Known(models.KindPurgeJobs) {
		t.Fatalf("expected %s to be registered", models.KindPurgeJobs)
	}
	if r.Known(models.Kind("iep.delete_everything")) {
		t.Fatal("unknown kind must not be registered")
	}
}

func TestGenerateKindSettings(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ks, err := r.Get(models.KindGenerateVersion)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Allocation retries resolve a narrow commit race; the ceiling must
	// stay within the small design window.
	if ks.MaxAllocationAttempts < 3 || ks.MaxAllocationAttempts > 5 {
		t.Fatalf("allocation attempts out of design window: %d", ks.MaxAllocationAttempts)
	}
	if ks.DefaultPriority <= 0 {
		t.Fatalf("expected positive default priority, got %d", ks.DefaultPriority)
	}
}

func TestKindsReturnsDeclarationOrder(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got := r.Kinds()
	want := []models.Kind{models.KindGenerateVersion, models.KindPurgeJobs}
	if len(got) != len(want) {
		t.Fatalf("expected %d kinds, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestGetUnknownKind(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := r.Get(models.Kind("nope")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
