package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// AutoScheduleService replaces the planned part of a projection with a generated schedule.
type AutoScheduleService struct {
	projections projectionRepository
	assignments assignmentRepository
	catalogs    catalogLister
	approved    approvedResolver
	scheduler   *planner.Scheduler
	tx          txProvider
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAutoScheduleService constructs an AutoScheduleService.
func NewAutoScheduleService(
	projections projectionRepository,
	assignments assignmentRepository,
	catalogs catalogLister,
	approved approvedResolver,
	scheduler *planner.Scheduler,
	tx txProvider,
	metrics *MetricsService,
	logger *zap.Logger,
) *AutoScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = planner.NewScheduler(planner.DefaultMaxCredits, planner.DefaultMaxIterations, planner.DefaultMinApprovedKeyLength)
	}
	return &AutoScheduleService{
		projections: projections,
		assignments: assignments,
		catalogs:    catalogs,
		approved:    approved,
		scheduler:   scheduler,
		tx:          tx,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run drops every non-completed assignment of the projection and writes the
// scheduler output as planned assignments in one transaction. Courses placed
// by the fill or forced passes are listed as advisory.
func (s *AutoScheduleService) Run(ctx context.Context, projectionID, requester string, req dto.AutoScheduleRequest) (resp *dto.AutoScheduleResponse, err error) {
	started := time.Now()
	defer func() { s.metrics.RecordMutation("auto_schedule", err) }()

	projection, err := s.projections.FindByID(ctx, nil, projectionID)
	if err != nil {
		return nil, storageError(err, "projection not found", "failed to load projection")
	}
	if err := authorizeOwner(projection, requester); err != nil {
		return nil, err
	}

	catalog, err := s.catalogs.List(ctx, req.Catalog)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog has no courses; synchronise it first")
	}
	approved := s.approved.ApprovedCodes(ctx, projection.StudentID, req.Program, req.Approved)

	var plan planner.Plan
	var removed int64
	err = withinTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		locked, err := lockOwnedProjection(ctx, s.projections, tx, projectionID, requester)
		if err != nil {
			return err
		}
		current, err := s.assignments.ListByProjection(ctx, tx, locked.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to load projection courses")
		}

		plan = s.scheduler.Schedule(catalog, current, approved)

		removed, err = s.assignments.DeleteNonCompleted(ctx, tx, locked.ID)
		if err != nil {
			return storageError(err, "projection not found", "failed to clear planned courses")
		}

		batch := make([]models.Assignment, 0, len(plan.Courses))
		for _, scheduled := range plan.Courses {
			semester := scheduled.Semester
			batch = append(batch, models.Assignment{
				ProjectionID: locked.ID,
				CourseCode:   scheduled.Course.Code,
				Semester:     &semester,
				Status:       models.StatusPlanned,
			})
		}
		if err := s.assignments.CreateBatch(ctx, tx, batch); err != nil {
			return storageError(err, "course not found", "failed to store generated schedule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.ListByProjection(ctx, nil, projection.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload projection courses")
	}
	if assignments == nil {
		assignments = []models.AssignmentWithCourse{}
	}

	byPass := map[string]int{}
	advisory := []string{}
	for _, scheduled := range plan.Courses {
		byPass[string(scheduled.Pass)]++
		if scheduled.Pass != planner.PassPrerequisites {
			advisory = append(advisory, scheduled.Course.Code)
		}
	}
	unscheduled := plan.Unscheduled
	if unscheduled == nil {
		unscheduled = []models.Course{}
	}

	s.metrics.ObserveAutoSchedule(time.Since(started), plan.ForcedGroups, byPass)
	s.logger.Info("projection auto-scheduled",
		zap.String("projection_id", projection.ID),
		zap.Int("placed", len(plan.Courses)),
		zap.Int64("removed", removed),
		zap.Int("forced_groups", plan.ForcedGroups),
		zap.Int("unscheduled", len(unscheduled)),
	)
	if len(unscheduled) > 0 {
		s.logger.Warn("auto-schedule hit the iteration ceiling", zap.String("projection_id", projection.ID), zap.Int("iterations", plan.Iterations))
	}

	return &dto.AutoScheduleResponse{
		Projection: models.ProjectionDetail{
			Projection:  *projection,
			Assignments: assignments,
			Metrics:     planner.Summarize(assignments),
		},
		Placed:       len(plan.Courses),
		Removed:      removed,
		Unscheduled:  unscheduled,
		Advisory:     advisory,
		ForcedGroups: plan.ForcedGroups,
		Iterations:   plan.Iterations,
	}, nil
}
