package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/repository"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type assignmentFixture struct {
	svc        *AssignmentService
	store      *plannerStore
	approved   *approvedStub
	courses    *courseRepoStub
	cache      *CacheService
	mock       sqlmock.Sqlmock
	projection models.Projection
}

func newAssignmentFixture(t *testing.T) assignmentFixture {
	store := newPlannerStore()
	store.addStudent("20201234")
	store.addCourse(testCourse("DCCB-00106", 6, 1))
	store.addCourse(testCourse("DCCB-00107", 6, 2, "DCCB-00106"))
	projection := store.addProjection("20201234", "Plan A", false)

	tx, mock := newTxProviderMock(t)
	approved := &approvedStub{}
	courses := &courseRepoStub{store: store}
	cache := NewCacheService(repository.NewLocalCacheRepository(time.Minute), nil, time.Minute, zap.NewNop(), true)
	svc := NewAssignmentService(projectionRepoStub{store}, assignmentRepoStub{store}, courses, approved, nil, tx, cache, nil, zap.NewNop())
	return assignmentFixture{svc: svc, store: store, approved: approved, courses: courses, cache: cache, mock: mock, projection: projection}
}

func (f assignmentFixture) add(code string, semester int) (*models.AssignmentWithCourse, error) {
	return f.svc.Add(context.Background(), f.projection.ID, "20201234", dto.AddCourseRequest{Code: code, Semester: intPtr(semester)})
}

func TestAssignmentServiceAddRequiresPrerequisiteBeforeSemester(t *testing.T) {
	f := newAssignmentFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.add("DCCB-00107", 1)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPlanViolation))
	assert.Contains(t, err.Error(), "missing prerequisites for semester 1: DCCB-00106")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	first, err := f.add("dccb-00106 ", 1)
	require.NoError(t, err)
	assert.Equal(t, "DCCB-00106", first.CourseCode)
	assert.Equal(t, models.StatusPlanned, first.Status)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.add("DCCB-00107", 1)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPlanViolation))
	assert.Contains(t, err.Error(), "DCCB-00106 (scheduled for semester 1)")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	second, err := f.add("DCCB-00107", 2)
	require.NoError(t, err)
	assert.Equal(t, 6, second.Credits)
	require.NotNil(t, second.Semester)
	assert.Equal(t, 2, *second.Semester)

	require.Len(t, f.store.joined(f.projection.ID), 2)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddFailedPrerequisiteBlocks(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00106", 1, models.StatusFailed)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.add("DCCB-00107", 2)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPlanViolation))
	assert.Contains(t, err.Error(), "DCCB-00106 (failed)")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddApprovedPrerequisite(t *testing.T) {
	f := newAssignmentFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.svc.Add(context.Background(), f.projection.ID, "20201234", dto.AddCourseRequest{
		Code:     "DCCB-00107",
		Semester: intPtr(1),
		Approved: []interface{}{"DCCB00106"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DCCB-00107", result.CourseCode)
	assert.Equal(t, 1, f.approved.calls)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddRespectsCreditCap(t *testing.T) {
	f := newAssignmentFixture(t)
	for _, code := range []string{"DCCB-00201", "DCCB-00202", "DCCB-00203", "DCCB-00204", "DCCB-00205"} {
		f.store.addCourse(testCourse(code, 8, 1))
	}

	for _, code := range []string{"DCCB-00201", "DCCB-00202", "DCCB-00203", "DCCB-00204"} {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err := f.add(code, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 32, f.store.creditsBySemester(f.projection.ID)[1])

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.add("DCCB-00205", 1)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPlanViolation))
	assert.Contains(t, err.Error(), "semester 1 would carry 40 credits, above the 32 credit cap")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.add("DCCB-00205", 2)
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddDuplicate(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00106", 1, models.StatusCompleted)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.add("DCCB-00106", 3)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddMaterializesUnknownCourse(t *testing.T) {
	f := newAssignmentFixture(t)
	credits, level := 5.6, 3.0

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.add("ECIN-00900", 4)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.svc.Add(context.Background(), f.projection.ID, "20201234", dto.AddCourseRequest{
		Code:     "ecin-00900",
		Semester: intPtr(4),
		Name:     "Taller de Proyecto",
		Credits:  &credits,
		Level:    &level,
		Catalog:  "202010",
	})
	require.NoError(t, err)
	assert.Equal(t, "ECIN-00900", result.CourseCode)
	assert.Equal(t, 6, result.Credits)
	assert.Equal(t, 3, result.Level)

	stored, ok := f.store.courses["ECIN-00900"]
	require.True(t, ok)
	assert.Equal(t, "Taller de Proyecto", stored.Name)
	assert.Equal(t, "202010", stored.Catalog)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddInlineCourseRefreshesCatalogList(t *testing.T) {
	f := newAssignmentFixture(t)
	catalog := NewCatalogService(nil, f.courses, f.cache, nil, time.Minute, zap.NewNop())

	before, err := catalog.List(context.Background(), "202010")
	require.NoError(t, err)
	require.Len(t, before, 2)

	credits, level := 4.0, 1.0
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Add(context.Background(), f.projection.ID, "20201234", dto.AddCourseRequest{
		Code:     "ECIN-00950",
		Semester: intPtr(1),
		Name:     "Electivo",
		Credits:  &credits,
		Level:    &level,
		Catalog:  "202010",
	})
	require.NoError(t, err)

	after, err := catalog.List(context.Background(), "202010")
	require.NoError(t, err)
	require.Len(t, after, 3)
	codes := make([]string, 0, len(after))
	for _, c := range after {
		codes = append(codes, c.Code)
	}
	assert.Contains(t, codes, "ECIN-00950")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddRejectsBadInput(t *testing.T) {
	f := newAssignmentFixture(t)

	cases := []dto.AddCourseRequest{
		{Code: "  ", Semester: intPtr(1)},
		{Code: "DCCB-00106"},
		{Code: "DCCB-00106", Semester: intPtr(0)},
		{Code: "DCCB-00106", Semester: intPtr(1), Status: "aprobado"},
	}
	for _, req := range cases {
		_, err := f.svc.Add(context.Background(), f.projection.ID, "20201234", req)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest), req)
	}
	assert.Zero(t, f.approved.calls)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceAddForbiddenForOtherStudent(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.svc.Add(context.Background(), f.projection.ID, "20209999", dto.AddCourseRequest{Code: "DCCB-00106", Semester: intPtr(1)})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, f.store.joined(f.projection.ID))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceMove(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00106", 1, models.StatusPlanned)
	f.store.place(f.projection.ID, "DCCB-00107", 2, models.StatusPlanned)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Move(context.Background(), f.projection.ID, "DCCB-00107", "20201234", dto.UpdateCourseRequest{Semester: intPtr(1)})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPlanViolation))
	assert.Contains(t, err.Error(), "prerequisites not completed before semester 1")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	moved, err := f.svc.Move(context.Background(), f.projection.ID, "dccb-00107", "20201234", dto.UpdateCourseRequest{Semester: intPtr(4)})
	require.NoError(t, err)
	require.NotNil(t, moved.Semester)
	assert.Equal(t, 4, *moved.Semester)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	completed, err := f.svc.Move(context.Background(), f.projection.ID, "DCCB-00106", "20201234", dto.UpdateCourseRequest{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, 1, *completed.Semester)

	for _, a := range f.store.joined(f.projection.ID) {
		switch a.CourseCode {
		case "DCCB-00106":
			assert.Equal(t, models.StatusCompleted, a.Status)
		case "DCCB-00107":
			assert.Equal(t, 4, *a.Semester)
		}
	}
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceMoveKeepsMissingPrerequisitesAdvisory(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00107", 2, models.StatusPlanned)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	moved, err := f.svc.Move(context.Background(), f.projection.ID, "DCCB-00107", "20201234", dto.UpdateCourseRequest{Semester: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, *moved.Semester)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceMoveErrors(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00106", 0, models.StatusPlanned)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Move(context.Background(), f.projection.ID, "DCCB-00106", "20201234", dto.UpdateCourseRequest{Status: models.StatusFailed})
	assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Move(context.Background(), f.projection.ID, "DCCB-00107", "20201234", dto.UpdateCourseRequest{Semester: intPtr(2)})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Move(context.Background(), f.projection.ID, "DCCB-00106", "20201234", dto.UpdateCourseRequest{Semester: intPtr(-1)})
	assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAssignmentServiceRemove(t *testing.T) {
	f := newAssignmentFixture(t)
	f.store.place(f.projection.ID, "DCCB-00106", 1, models.StatusPlanned)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Remove(context.Background(), f.projection.ID, "DCCB00106", "20201234"))
	assert.Empty(t, f.store.joined(f.projection.ID))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.Remove(context.Background(), f.projection.ID, "DCCB-00106", "20201234")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, f.mock.ExpectationsWereMet())
}
