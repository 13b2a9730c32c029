package iep

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"brightpath/internal/domain"
	models "brightpath/internal/domain/models/iep"
	iepRepo "brightpath/internal/domain/repositories/iep"
	"brightpath/internal/repository/postgres"
)

// PostgresVersionRepository implements the VersionRepository interface.
//
// The version-uniqueness invariant lives in the database: the table
// carries UNIQUE (student_id, school_year, version). Insert surfaces a
// violation as domain.ErrVersionConflict; the service layer owns the
// re-read-and-retry loop.
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new IEP version repository
func NewVersionRepository(config *postgres.RepositoryConfig) iepRepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const versionColumns = `id, student_id, school_year, version, parent_version_id, status, content, created_by, created_at`

// GetHead returns the row with the maximum version for the key, or nil
// if the key has no versions yet.
func (r *PostgresVersionRepository) GetHead(ctx context.Context, studentID, schoolYear string) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE student_id = $1 AND school_year = $2
		ORDER BY version DESC
		LIMIT 1
	`, versionColumns, r.tables.IEPVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	var v models.Version
	err := executor.QueryRow(ctx, query, studentID, schoolYear).Scan(
		&v.ID,
		&v.StudentID,
		&v.SchoolYear,
		&v.Version,
		&v.ParentVersionID,
		&v.Status,
		&v.Content,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get head version: %w", err)
	}

	return &v, nil
}

// Insert creates a version row with the caller-chosen version number.
func (r *PostgresVersionRepository) Insert(ctx context.Context, nv *iepRepo.NewVersion) (*models.Version, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, student_id, school_year, version, parent_version_id, status, content, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, r.tables.IEPVersions, versionColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	var v models.Version
	err := executor.QueryRow(ctx, query,
		nv.ID,
		nv.StudentID,
		nv.SchoolYear,
		nv.Version,
		nv.ParentVersionID,
		nv.Status,
		nv.Content,
		nv.CreatedBy,
	).Scan(
		&v.ID,
		&v.StudentID,
		&v.SchoolYear,
		&v.Version,
		&v.ParentVersionID,
		&v.Status,
		&v.Content,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			// Another writer committed this version number first
			return nil, fmt.Errorf("insert version %d for student %s year %s: %w",
				nv.Version, nv.StudentID, nv.SchoolYear, domain.ErrVersionConflict)
		}
		if postgres.IsPgForeignKeyError(err) {
			// The parent row changed underneath the insert; a re-read of
			// the head resolves against the current chain.
			return nil, fmt.Errorf("parent version %d for student %s year %s no longer exists: %w",
				nv.Version-1, nv.StudentID, nv.SchoolYear, domain.ErrVersionConflict)
		}
		return nil, fmt.Errorf("insert version: %w", err)
	}

	return &v, nil
}

// GetByID retrieves a version by ID
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id string) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, versionColumns, r.tables.IEPVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	var v models.Version
	err := executor.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.StudentID,
		&v.SchoolYear,
		&v.Version,
		&v.ParentVersionID,
		&v.Status,
		&v.Content,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	return &v, nil
}

// ListByKey returns all versions for the key ordered by version ascending
func (r *PostgresVersionRepository) ListByKey(ctx context.Context, studentID, schoolYear string) ([]models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE student_id = $1 AND school_year = $2
		ORDER BY version ASC
	`, versionColumns, r.tables.IEPVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, studentID, schoolYear)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(
			&v.ID,
			&v.StudentID,
			&v.SchoolYear,
			&v.Version,
			&v.ParentVersionID,
			&v.Status,
			&v.Content,
			&v.CreatedBy,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	return versions, nil
}

// UpdateStatus changes only the status field of an existing version. The
// update is skipped when the row already holds the target status, so a
// concurrent duplicate transition surfaces as a conflict.
func (r *PostgresVersionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2
		WHERE id = $1 AND status <> $2
	`, r.tables.IEPVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update version status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("version %s already %s or missing: %w", id, status, domain.ErrConflict)
	}

	return nil
}
