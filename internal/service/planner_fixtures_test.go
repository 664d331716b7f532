package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

var uniqueViolationErr = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

// plannerStore is an in-memory stand-in for the planner tables shared by the repository stubs.
type plannerStore struct {
	students    map[string]models.Student
	courses     map[string]models.Course
	members     map[string]map[string]struct{}
	projections map[string]models.Projection
	assignments map[string]models.Assignment
	seq         int
	clock       time.Time
}

func newPlannerStore() *plannerStore {
	return &plannerStore{
		students:    map[string]models.Student{},
		courses:     map[string]models.Course{},
		members:     map[string]map[string]struct{}{},
		projections: map[string]models.Projection{},
		assignments: map[string]models.Assignment{},
		clock:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *plannerStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *plannerStore) addStudent(id string) {
	s.students[id] = models.Student{ID: id, Name: "Student " + id, Email: id + "@alumnos.ucn.cl"}
}

func (s *plannerStore) addCourse(c models.Course) {
	s.courses[c.Code] = c
	s.join(c.Catalog, c.Code)
}

func (s *plannerStore) join(catalog, code string) {
	if catalog == "" {
		return
	}
	if s.members[catalog] == nil {
		s.members[catalog] = map[string]struct{}{}
	}
	s.members[catalog][code] = struct{}{}
}

func (s *plannerStore) addProjection(studentID, name string, ideal bool) models.Projection {
	s.clock = s.clock.Add(time.Minute)
	p := models.Projection{ID: s.nextID("proj"), StudentID: studentID, VersionName: name, IsIdeal: ideal, CreatedAt: s.clock}
	s.projections[p.ID] = p
	return p
}

func (s *plannerStore) place(projectionID, code string, semester int, status models.AssignmentStatus) models.Assignment {
	sem := semester
	a := models.Assignment{ID: s.nextID("asg"), ProjectionID: projectionID, CourseCode: code, Semester: &sem, Status: status}
	if semester == 0 {
		a.Semester = nil
	}
	s.assignments[a.ID] = a
	return a
}

func (s *plannerStore) joined(projectionID string) []models.AssignmentWithCourse {
	out := []models.AssignmentWithCourse{}
	for _, a := range s.assignments {
		if a.ProjectionID != projectionID {
			continue
		}
		c := s.courses[a.CourseCode]
		out = append(out, models.AssignmentWithCourse{
			Assignment:    a,
			CourseName:    c.Name,
			Credits:       c.Credits,
			Level:         c.Level,
			Prerequisites: c.Prerequisites,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Semester, out[j].Semester
		switch {
		case si == nil && sj != nil:
			return false
		case si != nil && sj == nil:
			return true
		case si != nil && sj != nil && *si != *sj:
			return *si < *sj
		}
		return out[i].CourseCode < out[j].CourseCode
	})
	return out
}

func (s *plannerStore) creditsBySemester(projectionID string) map[int]int {
	totals := map[int]int{}
	for _, a := range s.joined(projectionID) {
		if a.Semester != nil {
			totals[*a.Semester] += a.Credits
		}
	}
	return totals
}

type projectionRepoStub struct{ store *plannerStore }

func (r projectionRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Projection) error {
	for _, existing := range r.store.projections {
		if existing.StudentID == p.StudentID && existing.VersionName == p.VersionName {
			return uniqueViolationErr
		}
	}
	if p.ID == "" {
		p.ID = r.store.nextID("proj")
	}
	r.store.clock = r.store.clock.Add(time.Minute)
	p.CreatedAt = r.store.clock
	r.store.projections[p.ID] = *p
	return nil
}

func (r projectionRepoStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error) {
	p, ok := r.store.projections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r projectionRepoStub) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error) {
	return r.FindByID(ctx, exec, id)
}

func (r projectionRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.Projection, error) {
	out := []models.Projection{}
	for _, p := range r.store.projections {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r projectionRepoStub) FindPreferred(ctx context.Context, studentID string) (*models.Projection, error) {
	list, _ := r.ListByStudent(ctx, studentID)
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	for _, p := range list {
		if p.IsIdeal {
			return &p, nil
		}
	}
	newest := list[len(list)-1]
	return &newest, nil
}

func (r projectionRepoStub) CountByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	list, _ := r.ListByStudent(ctx, studentID)
	return len(list), nil
}

func (r projectionRepoStub) ExistsName(ctx context.Context, exec sqlx.ExtContext, studentID, name, excludeID string) (bool, error) {
	for _, p := range r.store.projections {
		if p.StudentID == studentID && p.VersionName == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r projectionRepoStub) UpdateName(ctx context.Context, exec sqlx.ExtContext, id, name string) error {
	p, ok := r.store.projections[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.VersionName = name
	r.store.projections[id] = p
	return nil
}

func (r projectionRepoStub) ClearIdeal(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	for id, p := range r.store.projections {
		if p.StudentID == studentID {
			p.IsIdeal = false
			r.store.projections[id] = p
		}
	}
	return nil
}

func (r projectionRepoStub) SetIdeal(ctx context.Context, exec sqlx.ExtContext, id string, ideal bool) error {
	p, ok := r.store.projections[id]
	if !ok {
		return sql.ErrNoRows
	}
	if ideal {
		for otherID, other := range r.store.projections {
			if otherID != id && other.StudentID == p.StudentID && other.IsIdeal {
				return uniqueViolationErr
			}
		}
	}
	p.IsIdeal = ideal
	r.store.projections[id] = p
	return nil
}

func (r projectionRepoStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, ok := r.store.projections[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.store.projections, id)
	for aid, a := range r.store.assignments {
		if a.ProjectionID == id {
			delete(r.store.assignments, aid)
		}
	}
	return nil
}

type assignmentRepoStub struct{ store *plannerStore }

func (r assignmentRepoStub) ListByProjection(ctx context.Context, exec sqlx.ExtContext, projectionID string) ([]models.AssignmentWithCourse, error) {
	return r.store.joined(projectionID), nil
}

func (r assignmentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	if _, ok := r.store.courses[a.CourseCode]; !ok {
		return &pq.Error{Code: "23503", Message: "violates foreign key constraint"}
	}
	for _, existing := range r.store.assignments {
		if existing.ProjectionID == a.ProjectionID && existing.CourseCode == a.CourseCode {
			return uniqueViolationErr
		}
	}
	if a.ID == "" {
		a.ID = r.store.nextID("asg")
	}
	r.store.assignments[a.ID] = *a
	return nil
}

func (r assignmentRepoStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error {
	for i := range assignments {
		if err := r.Create(ctx, exec, &assignments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r assignmentRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	existing, ok := r.store.assignments[a.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Semester = a.Semester
	existing.Status = a.Status
	r.store.assignments[a.ID] = existing
	return nil
}

func (r assignmentRepoStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, ok := r.store.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.store.assignments, id)
	return nil
}

func (r assignmentRepoStub) DeleteNonCompleted(ctx context.Context, exec sqlx.ExtContext, projectionID string) (int64, error) {
	var removed int64
	for id, a := range r.store.assignments {
		if a.ProjectionID == projectionID && a.Status != models.StatusCompleted {
			delete(r.store.assignments, id)
			removed++
		}
	}
	return removed, nil
}

type courseRepoStub struct {
	store   *plannerStore
	upserts int
	listErr error
}

func (r *courseRepoStub) List(ctx context.Context, catalog string) ([]models.Course, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []models.Course{}
	for _, c := range r.store.courses {
		if catalog == "" {
			out = append(out, c)
			continue
		}
		if _, ok := r.store.members[catalog][c.Code]; ok {
			c.Catalog = catalog
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *courseRepoStub) FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Course, error) {
	c, ok := r.store.courses[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *courseRepoStub) Upsert(ctx context.Context, exec sqlx.ExtContext, c *models.Course) error {
	r.upserts++
	stored := *c
	if existing, ok := r.store.courses[c.Code]; ok {
		stored.Catalog = existing.Catalog
	}
	r.store.courses[c.Code] = stored
	r.store.join(c.Catalog, c.Code)
	return nil
}

func (r *courseRepoStub) CreateIfMissing(ctx context.Context, exec sqlx.ExtContext, c *models.Course) error {
	if _, ok := r.store.courses[c.Code]; !ok {
		r.store.courses[c.Code] = *c
	}
	r.store.join(c.Catalog, c.Code)
	return nil
}

type studentRepoStub struct{ store *plannerStore }

func (r studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := r.store.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type approvedStub struct {
	set   coursecode.Set
	calls int
}

func (a *approvedStub) ApprovedCodes(ctx context.Context, studentID, program string, override interface{}) coursecode.Set {
	a.calls++
	if parsed := coursecode.ParseApproved(override); len(parsed) > 0 {
		return parsed
	}
	if a.set == nil {
		return coursecode.Set{}
	}
	return a.set
}

type catalogListStub struct{ repo *courseRepoStub }

func (c catalogListStub) List(ctx context.Context, catalog string) ([]models.Course, error) {
	return c.repo.List(ctx, catalog)
}

func testCourse(code string, credits, level int, prereqs ...string) models.Course {
	return models.Course{Code: code, Name: "Course " + code, Credits: credits, Level: level, Prerequisites: prereqs, Catalog: "202010"}
}

func intPtr(v int) *int { return &v }
