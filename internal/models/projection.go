package models

import (
	"time"

	"github.com/lib/pq"
)

// AssignmentStatus is the lifecycle state of a course inside a projection.
type AssignmentStatus string

const (
	StatusCompleted AssignmentStatus = "cursado"
	StatusFailed    AssignmentStatus = "reprobado"
	StatusPlanned   AssignmentStatus = "proyectado"
)

// Valid reports whether the status is one of the three accepted values.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPlanned:
		return true
	}
	return false
}

// Projection is a named plan owned by one student.
type Projection struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	VersionName string    `db:"version_name" json:"version_name"`
	IsIdeal     bool      `db:"is_ideal" json:"is_ideal"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Assignment places one course of a projection at a semester.
type Assignment struct {
	ID           string           `db:"id" json:"id"`
	ProjectionID string           `db:"projection_id" json:"projection_id"`
	CourseCode   string           `db:"course_code" json:"course_code"`
	Semester     *int             `db:"semester" json:"semester"`
	Status       AssignmentStatus `db:"status" json:"status"`
}

// AssignmentWithCourse joins an assignment with the catalog data the planner needs.
type AssignmentWithCourse struct {
	Assignment
	CourseName    string         `db:"course_name" json:"course_name"`
	Credits       int            `db:"credits" json:"credits"`
	Level         int            `db:"level" json:"level"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
}

// HasSemester reports whether the assignment is placed and, if so, at which semester.
func (a AssignmentWithCourse) HasSemester() (int, bool) {
	if a.Semester == nil {
		return 0, false
	}
	return *a.Semester, true
}

// ProjectionMetrics aggregates credits of a projection.
type ProjectionMetrics struct {
	TotalCredits       int         `json:"total_credits"`
	SemesterCount      int         `json:"semester_count"`
	CreditsPerSemester map[int]int `json:"credits_per_semester"`
}

// ProjectionDetail is a projection with its assignments and metrics.
type ProjectionDetail struct {
	Projection
	Assignments []AssignmentWithCourse `json:"courses"`
	Metrics     ProjectionMetrics      `json:"metrics"`
}

// ProjectionMove describes a course placed at different semesters in two projections.
type ProjectionMove struct {
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	From       *int   `json:"from"`
	To         *int   `json:"to"`
}

// ProjectionComparison is the difference between a base projection and another one.
type ProjectionComparison struct {
	Base      *ProjectionDetail      `json:"base"`
	Other     *ProjectionDetail      `json:"other"`
	Advanced  []ProjectionMove       `json:"advanced"`
	Delayed   []ProjectionMove       `json:"delayed"`
	OnlyBase  []AssignmentWithCourse `json:"only_base"`
	OnlyOther []AssignmentWithCourse `json:"only_other"`
	Versions  []ProjectionDetail     `json:"versions"`
}
