package dto

import (
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
)

// CreateProjectionRequest creates an empty projection; a blank name is generated.
type CreateProjectionRequest struct {
	Name string `json:"versionName" validate:"omitempty,max=120"`
}

// CloneProjectionRequest copies a projection under a new name; a blank name is generated.
type CloneProjectionRequest struct {
	Name string `json:"versionName" validate:"omitempty,max=120"`
}

// UpdateProjectionRequest renames a projection and/or toggles its ideal flag.
type UpdateProjectionRequest struct {
	Name    *string `json:"versionName" validate:"omitempty,max=120"`
	IsIdeal *bool   `json:"isIdeal"`
}

// AddCourseRequest places a course in a projection. Name, credits, level,
// catalog and prerequisites materialize a course not yet synced from the catalog.
type AddCourseRequest struct {
	Code          string                  `json:"codigo"`
	Semester      *int                    `json:"semestre"`
	Status        models.AssignmentStatus `json:"estado"`
	Name          string                  `json:"nombre"`
	Credits       *float64                `json:"creditos"`
	Level         *float64                `json:"nivel"`
	Catalog       string                  `json:"catalogo"`
	Prerequisites []string                `json:"prereq"`
	Approved      interface{}             `json:"aprobadas"`
	Program       string                  `json:"program"`
}

// UpdateCourseRequest moves a course and/or changes its status.
type UpdateCourseRequest struct {
	Semester *int                    `json:"semestre"`
	Status   models.AssignmentStatus `json:"estado"`
	Approved interface{}             `json:"aprobadas"`
	Program  string                  `json:"program"`
}

// AutoScheduleRequest selects the catalog to schedule and the approved courses to keep out.
type AutoScheduleRequest struct {
	Catalog  string      `json:"catalog"`
	Program  string      `json:"program"`
	Approved interface{} `json:"aprobadas"`
}

// AutoScheduleResponse reports the persisted schedule.
type AutoScheduleResponse struct {
	Projection   models.ProjectionDetail `json:"projection"`
	Placed       int                     `json:"placed"`
	Removed      int64                   `json:"removed"`
	Unscheduled  []models.Course         `json:"unscheduled"`
	Advisory     []string                `json:"advisory"`
	ForcedGroups int                     `json:"forcedGroups"`
	Iterations   int                     `json:"iterations"`
}

// CurriculumRequest selects the projection, catalog and approved courses of an eligibility view.
type CurriculumRequest struct {
	ProjectionID string      `json:"projectionId" form:"projectionId"`
	Catalog      string      `json:"catalog" form:"catalog"`
	Program      string      `json:"program" form:"program"`
	Approved     interface{} `json:"aprobadas" form:"-"`
}

// CatalogSyncAccepted acknowledges an asynchronous catalog synchronisation.
type CatalogSyncAccepted struct {
	JobID   string `json:"jobId"`
	Program string `json:"program"`
	Catalog string `json:"catalog"`
}

// CurriculumResponse is the curriculum-wide eligibility view of a student.
type CurriculumResponse struct {
	Projection *models.ProjectionDetail    `json:"projection"`
	Courses    []planner.CourseEligibility `json:"courses"`
	Approved   []string                    `json:"aprobadas"`
}
