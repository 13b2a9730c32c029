package iep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/iep"
	"brightpath/internal/domain/repositories"
	iepRepo "brightpath/internal/domain/repositories/iep"
	iepSvc "brightpath/internal/domain/services/iep"
)

// passthroughTx runs the function directly; the fake repository is its
// own arbiter of atomicity.
type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// memVersionRepo is an in-memory VersionRepository with the same
// contract as the Postgres implementation: inserts are guarded by a
// unique (student, year, version) constraint and a violation surfaces
// domain.ErrVersionConflict.
type memVersionRepo struct {
	mu       sync.Mutex
	rows     []models.Version
	byKeyVer map[string]bool
	// raceWindow, when set, is invoked between releasing the read lock
	// and taking the write lock so tests can force interleavings.
	raceWindow func()
	insertErr  error
}

func newMemVersionRepo() *memVersionRepo {
	return &memVersionRepo{byKeyVer: make(map[string]bool)}
}

func keyVer(studentID, schoolYear string, version int) string {
	return fmt.Sprintf("%s|%s|%d", studentID, schoolYear, version)
}

func (m *memVersionRepo) GetHead(ctx context.Context, studentID, schoolYear string) (*models.Version, error) {
	m.mu.Lock()
	var head *models.Version
	for i := range m.rows {
		v := &m.rows[i]
		if v.StudentID == studentID && v.SchoolYear == schoolYear {
			if head == nil || v.Version > head.Version {
				head = v
			}
		}
	}
	var out *models.Version
	if head != nil {
		cp := *head
		out = &cp
	}
	m.mu.Unlock()

	if m.raceWindow != nil {
		m.raceWindow()
	}
	return out, nil
}

func (m *memVersionRepo) Insert(ctx context.Context, nv *iepRepo.NewVersion) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return nil, m.insertErr
	}

	k := keyVer(nv.StudentID, nv.SchoolYear, nv.Version)
	if m.byKeyVer[k] {
		return nil, fmt.Errorf("duplicate key: %w", domain.ErrVersionConflict)
	}
	m.byKeyVer[k] = true

	v := models.Version{
		ID:              nv.ID,
		StudentID:       nv.StudentID,
		SchoolYear:      nv.SchoolYear,
		Version:         nv.Version,
		ParentVersionID: nv.ParentVersionID,
		Status:          nv.Status,
		Content:         nv.Content,
		CreatedBy:       nv.CreatedBy,
	}
	m.rows = append(m.rows, v)
	cp := v
	return &cp, nil
}

func (m *memVersionRepo) GetByID(ctx context.Context, id string) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			cp := m.rows[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
}

func (m *memVersionRepo) ListByKey(ctx context.Context, studentID, schoolYear string) ([]models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Version
	for _, v := range m.rows {
		if v.StudentID == studentID && v.SchoolYear == schoolYear {
			out = append(out, v)
		}
	}
	// Insertion order is version order for this fake only when writes
	// are sequential; sort explicitly to match the SQL contract.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Version > out[j].Version; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (m *memVersionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			if m.rows[i].Status == status {
				return fmt.Errorf("version %s already %s: %w", id, status, domain.ErrConflict)
			}
			m.rows[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("version %s already %s or missing: %w", id, status, domain.ErrConflict)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createReq(studentID, schoolYear string) *iepSvc.CreateVersionRequest {
	return &iepSvc.CreateVersionRequest{
		StudentID:  studentID,
		SchoolYear: schoolYear,
		Content:    json.RawMessage(`{"present_levels":"reads at grade level"}`),
		UserID:     "teacher-1",
	}
}

func TestCreateVersionAssignsSequentialNumbers(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())
	ctx := context.Background()

	v1, err := svc.CreateVersion(ctx, createReq("student-1", "2025-2026"))
	if err != nil {
		t.Fatalf("create v1: %v", err)
	}
	if v1.Version != 1 {
		t.Fatalf("expected version 1, got %d", v1.Version)
	}
	if v1.ParentVersionID != nil {
		t.Fatalf("version 1 must have nil parent, got %v", *v1.ParentVersionID)
	}

	v2, err := svc.CreateVersion(ctx, createReq("student-1", "2025-2026"))
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}
	if v2.ParentVersionID == nil || *v2.ParentVersionID != v1.ID {
		t.Fatalf("version 2 parent must be version 1's id")
	}
}

func TestConcurrentCreatesYieldDenseUniqueVersions(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 10, testLogger())
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreateVersion(ctx, createReq("student-s", "2025-2026")); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent create failed: %v", err)
	}

	history, err := svc.GetVersionHistory(ctx, "student-s", "2025-2026")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != n {
		t.Fatalf("expected %d versions, got %d", n, len(history))
	}
	for i, v := range history {
		if v.Version != i+1 {
			t.Fatalf("expected dense numbering, got %d at position %d", v.Version, i)
		}
		if i == 0 {
			if v.ParentVersionID != nil {
				t.Fatal("version 1 must have nil parent")
			}
			continue
		}
		if v.ParentVersionID == nil || *v.ParentVersionID != history[i-1].ID {
			t.Fatalf("version %d parent does not chain to version %d", v.Version, i)
		}
	}
}

func TestConcurrentCreatesAcrossKeysDoNotInterfere(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 10, testLogger())
	ctx := context.Background()

	keys := []struct{ student, year string }{
		{"student-a", "2025-2026"},
		{"student-b", "2025-2026"},
		{"student-a", "2024-2025"},
	}
	const perKey = 4

	var wg sync.WaitGroup
	errCh := make(chan error, len(keys)*perKey)
	for _, k := range keys {
		for i := 0; i < perKey; i++ {
			wg.Add(1)
			go func(student, year string) {
				defer wg.Done()
				if _, err := svc.CreateVersion(ctx, createReq(student, year)); err != nil {
					errCh <- err
				}
			}(k.student, k.year)
		}
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent create failed: %v", err)
	}

	for _, k := range keys {
		history, err := svc.GetVersionHistory(ctx, k.student, k.year)
		if err != nil {
			t.Fatalf("history %s/%s: %v", k.student, k.year, err)
		}
		if len(history) != perKey {
			t.Fatalf("key %s/%s: expected %d versions, got %d", k.student, k.year, perKey, len(history))
		}
		for i, v := range history {
			if v.Version != i+1 {
				t.Fatalf("key %s/%s: gap or duplicate at position %d (version %d)", k.student, k.year, i, v.Version)
			}
		}
	}
}

func TestCreateVersionRetriesAfterLostRace(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())
	ctx := context.Background()

	// First call wins version 1 through the race window, so the outer
	// create loses its insert once and must retry with version 2.
	fired := false
	repo.raceWindow = func() {
		if fired {
			return
		}
		fired = true
		_, err := repo.Insert(ctx, &iepRepo.NewVersion{
			ID: "sneaky", StudentID: "student-r", SchoolYear: "2025-2026",
			Version: 1, Status: models.StatusDraft,
			Content: json.RawMessage(`{}`),
		})
		if err != nil {
			t.Errorf("race insert: %v", err)
		}
	}

	v, err := svc.CreateVersion(ctx, createReq("student-r", "2025-2026"))
	if err != nil {
		t.Fatalf("create after lost race: %v", err)
	}
	if v.Version != 2 {
		t.Fatalf("expected retry to land version 2, got %d", v.Version)
	}
	if v.ParentVersionID == nil || *v.ParentVersionID != "sneaky" {
		t.Fatal("retried version must chain to the winner's row")
	}
}

func TestCreateVersionSurfacesAllocationFailure(t *testing.T) {
	repo := newMemVersionRepo()
	repo.insertErr = fmt.Errorf("duplicate key: %w", domain.ErrVersionConflict)
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())

	_, err := svc.CreateVersion(context.Background(), createReq("student-x", "2025-2026"))
	if !errors.Is(err, domain.ErrAllocationFailed) {
		t.Fatalf("expected ErrAllocationFailed after exhausted retries, got %v", err)
	}
}

func TestCreateVersionDoesNotRetryFatalErrors(t *testing.T) {
	repo := newMemVersionRepo()
	fatal := errors.New("connection refused")
	repo.insertErr = fatal
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())

	_, err := svc.CreateVersion(context.Background(), createReq("student-x", "2025-2026"))
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error propagated, got %v", err)
	}
	if errors.Is(err, domain.ErrAllocationFailed) {
		t.Fatal("fatal errors must not be reported as allocation failures")
	}
}

func TestCreateVersionValidatesInput(t *testing.T) {
	svc := NewVersionService(newMemVersionRepo(), passthroughTx{}, 4, testLogger())
	ctx := context.Background()

	cases := []*iepSvc.CreateVersionRequest{
		{StudentID: "", SchoolYear: "2025-2026", Content: json.RawMessage(`{}`)},
		{StudentID: "s", SchoolYear: "2025/2026", Content: json.RawMessage(`{}`)},
		{StudentID: "s", SchoolYear: "2025-2026", Content: nil},
	}
	for i, req := range cases {
		if _, err := svc.CreateVersion(ctx, req); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestGetLatestVersion(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())
	ctx := context.Background()

	if _, err := svc.GetLatestVersion(ctx, "student-z", "2025-2026"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for empty key, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateVersion(ctx, createReq("student-z", "2025-2026")); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	latest, err := svc.GetLatestVersion(ctx, "student-z", "2025-2026")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Version != 3 {
		t.Fatalf("expected latest version 3, got %d", latest.Version)
	}
}

func TestFinalizeVersion(t *testing.T) {
	repo := newMemVersionRepo()
	svc := NewVersionService(repo, passthroughTx{}, 4, testLogger())
	ctx := context.Background()

	v, err := svc.CreateVersion(ctx, createReq("student-f", "2025-2026"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	final, err := svc.FinalizeVersion(ctx, v.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != models.StatusFinal {
		t.Fatalf("expected final status, got %s", final.Status)
	}

	if _, err := svc.FinalizeVersion(ctx, v.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict finalizing twice, got %v", err)
	}
}
