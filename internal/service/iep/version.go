package iep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/iep"
	"brightpath/internal/domain/repositories"
	iepRepo "brightpath/internal/domain/repositories/iep"
	iepSvc "brightpath/internal/domain/services/iep"
	"brightpath/internal/retry"
)

// schoolYearPattern matches reporting-period keys like "2025-2026".
var schoolYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// versionService implements the VersionService interface.
//
// CreateVersion is the optimistic-concurrency write path: read the head
// version for the key, insert head+1 with a parent pointer, and when the
// unique constraint rejects the insert (another writer took the number),
// re-run the whole read-then-insert sequence through the retry executor.
type versionService struct {
	repo     iepRepo.VersionRepository
	tx       repositories.TransactionManager
	executor *retry.Executor
	logger   *slog.Logger
}

// NewVersionService creates a new version service. maxAttempts bounds the
// allocation retry loop; 0 selects the retry package default.
func NewVersionService(repo iepRepo.VersionRepository, tx repositories.TransactionManager, maxAttempts int, logger *slog.Logger) iepSvc.VersionService {
	return &versionService{
		repo:     repo,
		tx:       tx,
		executor: retry.New(maxAttempts),
		logger:   logger,
	}
}

// CreateVersion allocates the next version number for the key and
// persists a new immutable version
func (s *versionService) CreateVersion(ctx context.Context, req *iepSvc.CreateVersionRequest) (*models.Version, error) {
	if err := validateCreateVersion(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var created *models.Version
	err := s.executor.Do(ctx, func(ctx context.Context) error {
		head, err := s.repo.GetHead(ctx, req.StudentID, req.SchoolYear)
		if err != nil {
			return err
		}

		nv := &iepRepo.NewVersion{
			ID:         uuid.NewString(),
			StudentID:  req.StudentID,
			SchoolYear: req.SchoolYear,
			Version:    1,
			Status:     models.StatusDraft,
			Content:    req.Content,
			CreatedBy:  req.UserID,
		}
		if head != nil {
			nv.Version = head.Version + 1
			parentID := head.ID
			nv.ParentVersionID = &parentID
		}

		v, err := s.repo.Insert(ctx, nv)
		if err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				// Lost the race; re-read the head and try the next number
				return retry.Retryable(err)
			}
			return err
		}

		created = v
		return nil
	})
	if err != nil {
		if retry.IsRetryable(err) {
			// Ceiling exhausted while only conflicts occurred. Contention
			// far beyond the expected concurrency for one key.
			s.logger.Error("version allocation failed",
				"student_id", req.StudentID,
				"school_year", req.SchoolYear,
				"max_attempts", s.executor.MaxAttempts,
				"error", err,
			)
			return nil, fmt.Errorf("student %s year %s: %w", req.StudentID, req.SchoolYear, domain.ErrAllocationFailed)
		}
		return nil, err
	}

	s.logger.Info("version created",
		"version_id", created.ID,
		"student_id", created.StudentID,
		"school_year", created.SchoolYear,
		"version", created.Version,
	)

	return created, nil
}

// GetVersion retrieves one version by ID
func (s *versionService) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: version id is required", domain.ErrValidation)
	}
	return s.repo.GetByID(ctx, id)
}

// GetLatestVersion returns the highest-numbered version for the key
func (s *versionService) GetLatestVersion(ctx context.Context, studentID, schoolYear string) (*models.Version, error) {
	if err := validateKey(studentID, schoolYear); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	head, err := s.repo.GetHead(ctx, studentID, schoolYear)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, fmt.Errorf("no versions for student %s year %s: %w", studentID, schoolYear, domain.ErrNotFound)
	}

	return head, nil
}

// GetVersionHistory returns all versions for the key, version ascending
func (s *versionService) GetVersionHistory(ctx context.Context, studentID, schoolYear string) ([]models.Version, error) {
	if err := validateKey(studentID, schoolYear); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.repo.ListByKey(ctx, studentID, schoolYear)
}

// FinalizeVersion marks a draft version final. The read and the status
// update run in one transaction so two concurrent finalize calls cannot
// both pass the draft check.
func (s *versionService) FinalizeVersion(ctx context.Context, id string) (*models.Version, error) {
	var v *models.Version
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if v.Status == models.StatusFinal {
			return fmt.Errorf("version %s is already final: %w", id, domain.ErrConflict)
		}
		return s.repo.UpdateStatus(ctx, id, models.StatusFinal)
	})
	if err != nil {
		return nil, err
	}
	v.Status = models.StatusFinal

	return v, nil
}

func validateCreateVersion(req *iepSvc.CreateVersionRequest) error {
	return validation.Errors{
		"student_id":  validation.Validate(req.StudentID, validation.Required, validation.Length(1, 64)),
		"school_year": validation.Validate(req.SchoolYear, validation.Required, validation.Match(schoolYearPattern)),
		"content":     validation.Validate([]byte(req.Content), validation.Required),
	}.Filter()
}

func validateKey(studentID, schoolYear string) error {
	return validation.Errors{
		"student_id":  validation.Validate(studentID, validation.Required, validation.Length(1, 64)),
		"school_year": validation.Validate(schoolYear, validation.Required, validation.Match(schoolYearPattern)),
	}.Filter()
}
