package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type catalogLister interface {
	List(ctx context.Context, catalog string) ([]models.Course, error)
}

// CurriculumService renders the read-only eligibility view of a student's curriculum.
type CurriculumService struct {
	projections projectionRepository
	assignments assignmentRepository
	catalogs    catalogLister
	approved    approvedResolver
	validator   *planner.Validator
	logger      *zap.Logger
}

// NewCurriculumService constructs a CurriculumService.
func NewCurriculumService(
	projections projectionRepository,
	assignments assignmentRepository,
	catalogs catalogLister,
	approved approvedResolver,
	validator *planner.Validator,
	logger *zap.Logger,
) *CurriculumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = planner.NewValidator(planner.DefaultMaxCredits, planner.DefaultMinApprovedKeyLength)
	}
	return &CurriculumService{
		projections: projections,
		assignments: assignments,
		catalogs:    catalogs,
		approved:    approved,
		validator:   validator,
		logger:      logger,
	}
}

// View evaluates every catalog course for the student. Without an explicit
// projection the ideal one is used, falling back to the newest; a student
// without projections gets the view of an empty plan.
func (s *CurriculumService) View(ctx context.Context, studentID string, req dto.CurriculumRequest) (*dto.CurriculumResponse, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "student id is required")
	}

	projection, err := s.selectProjection(ctx, studentID, strings.TrimSpace(req.ProjectionID))
	if err != nil {
		return nil, err
	}

	assignments := []models.AssignmentWithCourse{}
	var detail *models.ProjectionDetail
	if projection != nil {
		assignments, err = s.assignments.ListByProjection(ctx, nil, projection.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projection courses")
		}
		if assignments == nil {
			assignments = []models.AssignmentWithCourse{}
		}
		detail = &models.ProjectionDetail{
			Projection:  *projection,
			Assignments: assignments,
			Metrics:     planner.Summarize(assignments),
		}
	}

	catalog, err := s.catalogs.List(ctx, req.Catalog)
	if err != nil {
		return nil, err
	}
	approved := s.approved.ApprovedCodes(ctx, studentID, req.Program, req.Approved)

	return &dto.CurriculumResponse{
		Projection: detail,
		Courses:    s.validator.Eligibility(catalog, assignments, approved),
		Approved:   approved.Keys(),
	}, nil
}

func (s *CurriculumService) selectProjection(ctx context.Context, studentID, projectionID string) (*models.Projection, error) {
	if projectionID != "" {
		projection, err := s.projections.FindByID(ctx, nil, projectionID)
		if err != nil {
			return nil, storageError(err, "projection not found", "failed to load projection")
		}
		if err := authorizeOwner(projection, studentID); err != nil {
			return nil, err
		}
		return projection, nil
	}

	projection, err := s.projections.FindPreferred(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projection")
	}
	return projection, nil
}
