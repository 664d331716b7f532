package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type approvedResolver interface {
	ApprovedCodes(ctx context.Context, studentID, program string, override interface{}) coursecode.Set
}

// AssignmentService adds, moves and removes courses inside a projection.
// Every write re-validates the projection while holding its row lock.
type AssignmentService struct {
	projections projectionRepository
	assignments assignmentRepository
	courses     courseRepository
	approved    approvedResolver
	validator   *planner.Validator
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(
	projections projectionRepository,
	assignments assignmentRepository,
	courses courseRepository,
	approved approvedResolver,
	validator *planner.Validator,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = planner.NewValidator(planner.DefaultMaxCredits, planner.DefaultMinApprovedKeyLength)
	}
	return &AssignmentService{
		projections: projections,
		assignments: assignments,
		courses:     courses,
		approved:    approved,
		validator:   validator,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Add places a course at a semester. Unknown courses are materialized from the
// inline metadata when it is complete. The placement must satisfy every
// prerequisite strictly before the semester and the credit cap.
func (s *AssignmentService) Add(ctx context.Context, projectionID, requester string, req dto.AddCourseRequest) (result *models.AssignmentWithCourse, err error) {
	defer func() { s.metrics.RecordMutation("add", err) }()

	code := coursecode.Normalize(req.Code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "course code is required")
	}
	if req.Semester == nil || *req.Semester < 1 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "semester must be a positive integer")
	}
	status := req.Status
	if status == "" {
		status = models.StatusPlanned
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "invalid course status")
	}
	semester := *req.Semester

	owner, err := s.ownerOf(ctx, projectionID, requester)
	if err != nil {
		return nil, err
	}
	approved := s.approved.ApprovedCodes(ctx, owner, req.Program, req.Approved)

	var created *models.Course
	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		projection, err := lockOwnedProjection(ctx, s.projections, tx, projectionID, requester)
		if err != nil {
			return err
		}

		course, isNew, err := s.resolveCourse(ctx, tx, code, req)
		if err != nil {
			return err
		}
		if isNew {
			created = course
		}

		current, err := s.assignments.ListByProjection(ctx, tx, projection.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to load projection courses")
		}
		if findAssignment(current, course.Code) != nil {
			return appErrors.Clone(appErrors.ErrConflict, "course is already part of the projection")
		}

		if verdict := s.validator.Placement(*course, current, semester, approved, true); !verdict.OK {
			return appErrors.Clone(appErrors.ErrPlanViolation, verdict.Reason)
		}

		assignment := models.Assignment{
			ProjectionID: projection.ID,
			CourseCode:   course.Code,
			Semester:     &semester,
			Status:       status,
		}
		if err := s.assignments.Create(ctx, tx, &assignment); err != nil {
			mapped := storageError(err, "course not found", "failed to add course")
			if appErrors.Is(mapped, appErrors.ErrConflict) {
				return appErrors.Clone(appErrors.ErrConflict, "course is already part of the projection")
			}
			return mapped
		}

		result = &models.AssignmentWithCourse{
			Assignment:    assignment,
			CourseName:    course.Name,
			Credits:       course.Credits,
			Level:         course.Level,
			Prerequisites: course.Prerequisites,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created != nil {
		s.cache.InvalidateCatalog(ctx, created.Catalog)
	}

	s.logger.Info("course added to projection",
		zap.String("projection_id", projectionID),
		zap.String("course", result.CourseCode),
		zap.Int("semester", semester),
	)
	return result, nil
}

// Move changes the semester and/or status of an assignment. It is validated
// against the other assignments only; prerequisites missing from the plan
// stay advisory while timing errors and the credit cap reject the move.
func (s *AssignmentService) Move(ctx context.Context, projectionID, code, requester string, req dto.UpdateCourseRequest) (result *models.AssignmentWithCourse, err error) {
	defer func() { s.metrics.RecordMutation("move", err) }()

	code = coursecode.Normalize(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "course code is required")
	}
	if req.Semester != nil && *req.Semester < 1 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "semester must be a positive integer")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "invalid course status")
	}

	owner, err := s.ownerOf(ctx, projectionID, requester)
	if err != nil {
		return nil, err
	}
	approved := s.approved.ApprovedCodes(ctx, owner, req.Program, req.Approved)

	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		projection, err := lockOwnedProjection(ctx, s.projections, tx, projectionID, requester)
		if err != nil {
			return err
		}
		current, err := s.assignments.ListByProjection(ctx, tx, projection.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to load projection courses")
		}
		target := findAssignment(current, code)
		if target == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "course is not part of the projection")
		}

		semester := target.Semester
		if req.Semester != nil {
			semester = req.Semester
		}
		if semester == nil {
			return appErrors.Clone(appErrors.ErrBadRequest, "a semester is required to place the course")
		}

		course := models.Course{
			Code:          target.CourseCode,
			Name:          target.CourseName,
			Credits:       target.Credits,
			Level:         target.Level,
			Prerequisites: target.Prerequisites,
		}
		others := planner.Without(current, target.ID)
		if verdict := s.validator.Placement(course, others, *semester, approved, false); !verdict.OK {
			return appErrors.Clone(appErrors.ErrPlanViolation, verdict.Reason)
		}

		updated := *target
		value := *semester
		updated.Semester = &value
		if req.Status != "" {
			updated.Status = req.Status
		}
		if err := s.assignments.Update(ctx, tx, &updated.Assignment); err != nil {
			return storageError(err, "course is not part of the projection", "failed to update course")
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes one assignment. A removal cannot break the remaining plan so nothing is re-validated.
func (s *AssignmentService) Remove(ctx context.Context, projectionID, code, requester string) (err error) {
	defer func() { s.metrics.RecordMutation("remove", err) }()

	code = coursecode.Normalize(code)
	if code == "" {
		return appErrors.Clone(appErrors.ErrBadRequest, "course code is required")
	}

	return withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		projection, err := lockOwnedProjection(ctx, s.projections, tx, projectionID, requester)
		if err != nil {
			return err
		}
		current, err := s.assignments.ListByProjection(ctx, tx, projection.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to load projection courses")
		}
		target := findAssignment(current, code)
		if target == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "course is not part of the projection")
		}
		if err := s.assignments.Delete(ctx, tx, target.ID); err != nil {
			return storageError(err, "course is not part of the projection", "failed to remove course")
		}
		return nil
	})
}

// ownerOf reads the projection owner outside the write transaction so feed
// lookups for approved courses never run while the row lock is held.
func (s *AssignmentService) ownerOf(ctx context.Context, projectionID, requester string) (string, error) {
	projection, err := s.projections.FindByID(ctx, nil, projectionID)
	if err != nil {
		return "", storageError(err, "projection not found", "failed to load projection")
	}
	if err := authorizeOwner(projection, requester); err != nil {
		return "", err
	}
	return projection.StudentID, nil
}

// resolveCourse loads the course, or creates it from the inline metadata; the
// flag reports whether it was created.
func (s *AssignmentService) resolveCourse(ctx context.Context, tx *sqlx.Tx, code string, req dto.AddCourseRequest) (*models.Course, bool, error) {
	course, err := s.courses.FindByCode(ctx, tx, code)
	if err == nil {
		return course, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, storageError(err, "course not found", "failed to load course")
	}

	name := strings.TrimSpace(req.Name)
	catalog := strings.TrimSpace(req.Catalog)
	if name == "" || catalog == "" || req.Credits == nil || req.Level == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	credits := int(math.Round(*req.Credits))
	level := int(math.Round(*req.Level))
	if credits < 1 || level < 1 {
		return nil, false, appErrors.Clone(appErrors.ErrBadRequest, "course credits and level must be positive")
	}

	prerequisites := make([]string, 0, len(req.Prerequisites))
	for _, prereq := range req.Prerequisites {
		if normalized := coursecode.Normalize(prereq); normalized != "" {
			prerequisites = append(prerequisites, normalized)
		}
	}

	course = &models.Course{
		Code:          code,
		Name:          name,
		Credits:       credits,
		Level:         level,
		Prerequisites: prerequisites,
		Catalog:       catalog,
	}
	if err := s.courses.CreateIfMissing(ctx, tx, course); err != nil {
		return nil, false, storageError(err, "course not found", "failed to create course")
	}
	s.logger.Info("course materialized from inline metadata", zap.String("course", code), zap.String("catalog", catalog))
	return course, true, nil
}

// findAssignment matches by normalized code first and by numeric key second.
func findAssignment(assignments []models.AssignmentWithCourse, code string) *models.AssignmentWithCourse {
	for i := range assignments {
		if coursecode.Normalize(assignments[i].CourseCode) == code {
			return &assignments[i]
		}
	}
	for i := range assignments {
		if coursecode.SameCourse(assignments[i].CourseCode, code) {
			return &assignments[i]
		}
	}
	return nil
}
