package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
)

const (
	courseColumns        = `code, name, credits, level, prerequisites, catalog, created_at, updated_at`
	catalogCourseColumns = `c.code, c.name, c.credits, c.level, c.prerequisites, cc.catalog, c.created_at, c.updated_at`
)

// CourseRepository persists catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the courses of a catalog, or every course when catalog is empty.
// A course shared by several catalogs is listed under each of them, with
// Catalog set to the requested one.
func (r *CourseRepository) List(ctx context.Context, catalog string) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY level ASC, code ASC`
	args := []interface{}{}
	if catalog != "" {
		query = `SELECT ` + catalogCourseColumns + `
FROM courses c
JOIN catalog_courses cc ON cc.course_code = c.code
WHERE cc.catalog = $1
ORDER BY c.level ASC, c.code ASC`
		args = append(args, catalog)
	}

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByCode loads a course by its normalized code.
func (r *CourseRepository) FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE code = $1`
	var course models.Course
	if err := sqlx.GetContext(ctx, r.exec(exec), &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Upsert inserts the course or overwrites its catalog data, and records its
// membership in course.Catalog. The catalog a course was first stored under is
// kept, so syncing another catalog never removes it from earlier ones.
func (r *CourseRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `
INSERT INTO courses (code, name, credits, level, prerequisites, catalog, created_at, updated_at)
VALUES (:code, :name, :credits, :level, :prerequisites, :catalog, :created_at, :updated_at)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name,
    credits = EXCLUDED.credits,
    level = EXCLUDED.level,
    prerequisites = EXCLUDED.prerequisites,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, course); err != nil {
		return fmt.Errorf("upsert course %s: %w", course.Code, err)
	}
	return r.addToCatalog(ctx, exec, course)
}

// CreateIfMissing inserts the course unless a row with the same code exists.
func (r *CourseRepository) CreateIfMissing(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `
INSERT INTO courses (code, name, credits, level, prerequisites, catalog, created_at, updated_at)
VALUES (:code, :name, :credits, :level, :prerequisites, :catalog, :created_at, :updated_at)
ON CONFLICT (code) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, course); err != nil {
		return fmt.Errorf("create course %s: %w", course.Code, err)
	}
	return r.addToCatalog(ctx, exec, course)
}

func (r *CourseRepository) addToCatalog(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	if course.Catalog == "" {
		return nil
	}
	const query = `INSERT INTO catalog_courses (catalog, course_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, course.Catalog, course.Code); err != nil {
		return fmt.Errorf("add course %s to catalog %s: %w", course.Code, course.Catalog, err)
	}
	return nil
}
