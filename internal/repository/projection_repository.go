package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
)

const projectionColumns = `id, student_id, version_name, is_ideal, created_at`

// ProjectionRepository persists student projections.
type ProjectionRepository struct {
	db *sqlx.DB
}

// NewProjectionRepository constructs a ProjectionRepository.
func NewProjectionRepository(db *sqlx.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

func (r *ProjectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a projection assigning an identifier and creation time when absent.
func (r *ProjectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, projection *models.Projection) error {
	if projection.ID == "" {
		projection.ID = uuid.NewString()
	}
	if projection.CreatedAt.IsZero() {
		projection.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO projections (id, student_id, version_name, is_ideal, created_at)
VALUES (:id, :student_id, :version_name, :is_ideal, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, projection); err != nil {
		return fmt.Errorf("insert projection: %w", err)
	}
	return nil
}

// FindByID loads a projection.
func (r *ProjectionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM projections WHERE id = $1`
	var projection models.Projection
	if err := sqlx.GetContext(ctx, r.exec(exec), &projection, query, id); err != nil {
		return nil, err
	}
	return &projection, nil
}

// LockByID loads a projection holding a row lock until the transaction ends.
func (r *ProjectionRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM projections WHERE id = $1 FOR UPDATE`
	var projection models.Projection
	if err := sqlx.GetContext(ctx, r.exec(exec), &projection, query, id); err != nil {
		return nil, err
	}
	return &projection, nil
}

// ListByStudent returns the student's projections oldest first.
func (r *ProjectionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM projections WHERE student_id = $1 ORDER BY created_at ASC, version_name ASC`
	var projections []models.Projection
	if err := r.db.SelectContext(ctx, &projections, query, studentID); err != nil {
		return nil, fmt.Errorf("list projections: %w", err)
	}
	return projections, nil
}

// FindPreferred returns the ideal projection of the student, or the newest one.
func (r *ProjectionRepository) FindPreferred(ctx context.Context, studentID string) (*models.Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM projections WHERE student_id = $1 ORDER BY is_ideal DESC, created_at DESC LIMIT 1`
	var projection models.Projection
	if err := r.db.GetContext(ctx, &projection, query, studentID); err != nil {
		return nil, err
	}
	return &projection, nil
}

// CountByStudent counts the student's projections.
func (r *ProjectionRepository) CountByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM projections WHERE student_id = $1`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, studentID); err != nil {
		return 0, fmt.Errorf("count projections: %w", err)
	}
	return total, nil
}

// ExistsName checks whether the student already owns a projection with name, optionally excluding one id.
func (r *ProjectionRepository) ExistsName(ctx context.Context, exec sqlx.ExtContext, studentID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM projections WHERE student_id = $1 AND version_name = $2`
	args := []interface{}{studentID, name}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query+` LIMIT 1`, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check projection name: %w", err)
	}
	return true, nil
}

// UpdateName renames a projection.
func (r *ProjectionRepository) UpdateName(ctx context.Context, exec sqlx.ExtContext, id, name string) error {
	const query = `UPDATE projections SET version_name = $1 WHERE id = $2`
	return execAffecting(ctx, r.exec(exec), "rename projection", query, name, id)
}

// ClearIdeal removes the ideal flag from every projection of the student.
func (r *ProjectionRepository) ClearIdeal(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	const query = `UPDATE projections SET is_ideal = FALSE WHERE student_id = $1 AND is_ideal`
	if _, err := r.exec(exec).ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("clear ideal projections: %w", err)
	}
	return nil
}

// SetIdeal sets the ideal flag of one projection.
func (r *ProjectionRepository) SetIdeal(ctx context.Context, exec sqlx.ExtContext, id string, ideal bool) error {
	const query = `UPDATE projections SET is_ideal = $1 WHERE id = $2`
	return execAffecting(ctx, r.exec(exec), "set ideal projection", query, ideal, id)
}

// Delete removes a projection; its assignments cascade.
func (r *ProjectionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM projections WHERE id = $1`
	return execAffecting(ctx, r.exec(exec), "delete projection", query, id)
}

func execAffecting(ctx context.Context, exec sqlx.ExtContext, op, query string, args ...interface{}) error {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
