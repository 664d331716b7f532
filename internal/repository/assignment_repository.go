package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
)

// AssignmentRepository persists the course placements of projections.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByProjection returns assignments joined with their course data.
func (r *AssignmentRepository) ListByProjection(ctx context.Context, exec sqlx.ExtContext, projectionID string) ([]models.AssignmentWithCourse, error) {
	const query = `SELECT pc.id, pc.projection_id, pc.course_code, pc.semester, pc.status,
        c.name AS course_name, c.credits, c.level, c.prerequisites
        FROM projection_courses pc
        JOIN courses c ON c.code = pc.course_code
        WHERE pc.projection_id = $1
        ORDER BY pc.semester ASC NULLS LAST, pc.course_code ASC`
	var assignments []models.AssignmentWithCourse
	if err := sqlx.SelectContext(ctx, r.exec(exec), &assignments, query, projectionID); err != nil {
		return nil, fmt.Errorf("list projection courses: %w", err)
	}
	return assignments, nil
}

// Create inserts one assignment.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	const query = `
INSERT INTO projection_courses (id, projection_id, course_code, semester, status)
VALUES (:id, :projection_id, :course_code, :semester, :status)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment); err != nil {
		return fmt.Errorf("insert projection course: %w", err)
	}
	return nil
}

// CreateBatch inserts many assignments in one statement.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
	}
	const query = `
INSERT INTO projection_courses (id, projection_id, course_code, semester, status)
VALUES (:id, :projection_id, :course_code, :semester, :status)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignments); err != nil {
		return fmt.Errorf("insert projection courses: %w", err)
	}
	return nil
}

// Update changes the semester and status of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	const query = `UPDATE projection_courses SET semester = $1, status = $2 WHERE id = $3`
	return execAffecting(ctx, r.exec(exec), "update projection course", query, assignment.Semester, assignment.Status, assignment.ID)
}

// Delete removes one assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM projection_courses WHERE id = $1`
	return execAffecting(ctx, r.exec(exec), "delete projection course", query, id)
}

// DeleteNonCompleted removes every assignment of the projection that is not completed.
func (r *AssignmentRepository) DeleteNonCompleted(ctx context.Context, exec sqlx.ExtContext, projectionID string) (int64, error) {
	const query = `DELETE FROM projection_courses WHERE projection_id = $1 AND status <> $2`
	result, err := r.exec(exec).ExecContext(ctx, query, projectionID, models.StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("delete planned projection courses: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("projection course rows affected: %w", err)
	}
	return affected, nil
}
