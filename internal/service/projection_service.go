package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type projectionRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, projection *models.Projection) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Projection, error)
	FindPreferred(ctx context.Context, studentID string) (*models.Projection, error)
	CountByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error)
	ExistsName(ctx context.Context, exec sqlx.ExtContext, studentID, name, excludeID string) (bool, error)
	UpdateName(ctx context.Context, exec sqlx.ExtContext, id, name string) error
	ClearIdeal(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	SetIdeal(ctx context.Context, exec sqlx.ExtContext, id string, ideal bool) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type assignmentRepository interface {
	ListByProjection(ctx context.Context, exec sqlx.ExtContext, projectionID string) ([]models.AssignmentWithCourse, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error
	Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteNonCompleted(ctx context.Context, exec sqlx.ExtContext, projectionID string) (int64, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ProjectionService manages the lifecycle of student projections.
type ProjectionService struct {
	projections projectionRepository
	assignments assignmentRepository
	students    studentReader
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewProjectionService constructs a ProjectionService.
func NewProjectionService(
	projections projectionRepository,
	assignments assignmentRepository,
	students studentReader,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProjectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProjectionService{
		projections: projections,
		assignments: assignments,
		students:    students,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Create adds an empty projection for the student. A blank name becomes
// "Versión {count+1}"; when that generated name is taken a millisecond
// timestamp suffix is appended. A supplied name that is taken is a conflict.
func (s *ProjectionService) Create(ctx context.Context, studentID string, req dto.CreateProjectionRequest) (projection *models.Projection, err error) {
	defer func() { s.metrics.RecordMutation("create", err) }()

	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid projection payload")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storageError(err, "student not found", "failed to load student")
	}

	proposed := strings.TrimSpace(req.Name)
	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		name := proposed
		if name == "" {
			count, err := s.projections.CountByStudent(ctx, tx, studentID)
			if err != nil {
				return storageError(err, "student not found", "failed to count projections")
			}
			name = fmt.Sprintf("Versión %d", count+1)
		}

		taken, err := s.projections.ExistsName(ctx, tx, studentID, name, "")
		if err != nil {
			return storageError(err, "student not found", "failed to check projection name")
		}
		if taken {
			if proposed != "" {
				return appErrors.Clone(appErrors.ErrConflict, "a projection with that name already exists")
			}
			name = fmt.Sprintf("%s (%d)", name, s.now().UnixMilli())
		}

		projection = &models.Projection{StudentID: studentID, VersionName: name}
		if err := s.projections.Create(ctx, tx, projection); err != nil {
			return nameConflictOr(err, "failed to create projection")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("projection created", zap.String("student_id", studentID), zap.String("projection_id", projection.ID))
	return projection, nil
}

// Get loads one projection with its assignments and metrics.
func (s *ProjectionService) Get(ctx context.Context, id, requester string) (*models.ProjectionDetail, error) {
	projection, err := s.projections.FindByID(ctx, nil, id)
	if err != nil {
		return nil, storageError(err, "projection not found", "failed to load projection")
	}
	if err := authorizeOwner(projection, requester); err != nil {
		return nil, err
	}
	return s.detail(ctx, nil, *projection)
}

// List returns the student's projections oldest first, each with metrics.
func (s *ProjectionService) List(ctx context.Context, studentID string) ([]models.ProjectionDetail, error) {
	projections, err := s.projections.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projections")
	}
	details := make([]models.ProjectionDetail, 0, len(projections))
	for _, projection := range projections {
		detail, err := s.detail(ctx, nil, projection)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// Clone copies every assignment of the source projection into a new one.
// A blank name becomes "v{count+1}"; any colliding name is a conflict.
func (s *ProjectionService) Clone(ctx context.Context, sourceID, requester string, req dto.CloneProjectionRequest) (clone *models.ProjectionDetail, err error) {
	defer func() { s.metrics.RecordMutation("clone", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clone payload")
	}

	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		source, err := lockOwnedProjection(ctx, s.projections, tx, sourceID, requester)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			count, err := s.projections.CountByStudent(ctx, tx, source.StudentID)
			if err != nil {
				return storageError(err, "student not found", "failed to count projections")
			}
			name = fmt.Sprintf("v%d", count+1)
		}
		taken, err := s.projections.ExistsName(ctx, tx, source.StudentID, name, "")
		if err != nil {
			return storageError(err, "student not found", "failed to check projection name")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, "a projection with that name already exists")
		}

		current, err := s.assignments.ListByProjection(ctx, tx, source.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to load projection courses")
		}

		projection := models.Projection{StudentID: source.StudentID, VersionName: name}
		if err := s.projections.Create(ctx, tx, &projection); err != nil {
			return nameConflictOr(err, "failed to create projection")
		}

		copies := make([]models.Assignment, 0, len(current))
		for _, a := range current {
			copies = append(copies, models.Assignment{
				ProjectionID: projection.ID,
				CourseCode:   a.CourseCode,
				Semester:     a.Semester,
				Status:       a.Status,
			})
		}
		if err := s.assignments.CreateBatch(ctx, tx, copies); err != nil {
			return storageError(err, "course not found", "failed to copy projection courses")
		}

		clone = &models.ProjectionDetail{Projection: projection}
		for i, a := range current {
			a.ID = copies[i].ID
			a.ProjectionID = projection.ID
			clone.Assignments = append(clone.Assignments, a)
		}
		if clone.Assignments == nil {
			clone.Assignments = []models.AssignmentWithCourse{}
		}
		clone.Metrics = planner.Summarize(clone.Assignments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// Update renames a projection and/or changes its ideal flag. Marking a
// projection ideal clears the flag on every sibling in the same transaction.
func (s *ProjectionService) Update(ctx context.Context, id, requester string, req dto.UpdateProjectionRequest) (updated *models.Projection, err error) {
	defer func() { s.metrics.RecordMutation("update_projection", err) }()

	if req.Name == nil && req.IsIdeal == nil {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "nothing to update")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid projection payload")
	}
	var name string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "version name must not be empty")
		}
	}

	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		projection, err := lockOwnedProjection(ctx, s.projections, tx, id, requester)
		if err != nil {
			return err
		}

		if req.Name != nil && name != projection.VersionName {
			taken, err := s.projections.ExistsName(ctx, tx, projection.StudentID, name, projection.ID)
			if err != nil {
				return storageError(err, "projection not found", "failed to check projection name")
			}
			if taken {
				return appErrors.Clone(appErrors.ErrConflict, "a projection with that name already exists")
			}
			if err := s.projections.UpdateName(ctx, tx, projection.ID, name); err != nil {
				return nameConflictOr(err, "failed to rename projection")
			}
			projection.VersionName = name
		}

		if req.IsIdeal != nil {
			if *req.IsIdeal {
				if err := s.projections.ClearIdeal(ctx, tx, projection.StudentID); err != nil {
					return storageError(err, "projection not found", "failed to clear ideal projections")
				}
			}
			if err := s.projections.SetIdeal(ctx, tx, projection.ID, *req.IsIdeal); err != nil {
				return storageError(err, "projection not found", "failed to mark projection")
			}
			projection.IsIdeal = *req.IsIdeal
		}

		updated = projection
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a projection; its assignments cascade in the same statement.
func (s *ProjectionService) Delete(ctx context.Context, id, requester string) (err error) {
	defer func() { s.metrics.RecordMutation("delete_projection", err) }()

	return withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		projection, err := lockOwnedProjection(ctx, s.projections, tx, id, requester)
		if err != nil {
			return err
		}
		if err := s.projections.Delete(ctx, tx, projection.ID); err != nil {
			return storageError(err, "projection not found", "failed to delete projection")
		}
		return nil
	})
}

// Compare lists the student's versions and, when two distinct projections are
// named, reports courses advanced, delayed and present in only one of them.
func (s *ProjectionService) Compare(ctx context.Context, studentID, baseID, otherID string) (*models.ProjectionComparison, error) {
	versions, err := s.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	comparison := &models.ProjectionComparison{
		Versions:  versions,
		Advanced:  []models.ProjectionMove{},
		Delayed:   []models.ProjectionMove{},
		OnlyBase:  []models.AssignmentWithCourse{},
		OnlyOther: []models.AssignmentWithCourse{},
	}
	if baseID == "" || otherID == "" || baseID == otherID {
		return comparison, nil
	}

	byID := make(map[string]*models.ProjectionDetail, len(versions))
	for i := range versions {
		byID[versions[i].ID] = &versions[i]
	}
	base, ok := byID[baseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "base projection not found")
	}
	other, ok := byID[otherID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "compared projection not found")
	}

	diff := planner.Compare(base.Assignments, other.Assignments)
	comparison.Base = base
	comparison.Other = other
	comparison.Advanced = diff.Advanced
	comparison.Delayed = diff.Delayed
	comparison.OnlyBase = diff.OnlyBase
	comparison.OnlyOther = diff.OnlyOther
	return comparison, nil
}

func (s *ProjectionService) detail(ctx context.Context, exec sqlx.ExtContext, projection models.Projection) (*models.ProjectionDetail, error) {
	assignments, err := s.assignments.ListByProjection(ctx, exec, projection.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projection courses")
	}
	if assignments == nil {
		assignments = []models.AssignmentWithCourse{}
	}
	return &models.ProjectionDetail{
		Projection:  projection,
		Assignments: assignments,
		Metrics:     planner.Summarize(assignments),
	}, nil
}

func nameConflictOr(err error, internal string) error {
	mapped := storageError(err, "projection not found", internal)
	if appErrors.Is(mapped, appErrors.ErrConflict) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a projection with that name already exists")
	}
	return mapped
}
