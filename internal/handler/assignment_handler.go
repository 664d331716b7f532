package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/response"
)

type assignmentService interface {
	Add(ctx context.Context, projectionID, requester string, req dto.AddCourseRequest) (*models.AssignmentWithCourse, error)
	Move(ctx context.Context, projectionID, code, requester string, req dto.UpdateCourseRequest) (*models.AssignmentWithCourse, error)
	Remove(ctx context.Context, projectionID, code, requester string) error
}

type autoScheduler interface {
	Run(ctx context.Context, projectionID, requester string, req dto.AutoScheduleRequest) (*dto.AutoScheduleResponse, error)
}

// AssignmentHandler edits the courses of a projection.
type AssignmentHandler struct {
	assignments assignmentService
	scheduler   autoScheduler
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(assignments assignmentService, scheduler autoScheduler) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, scheduler: scheduler}
}

// Add godoc
// @Summary Add a course to a projection
// @Description Rejected with 422 when a prerequisite is not completed before the semester or the credit cap is exceeded
// @Tags Projection courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param payload body dto.AddCourseRequest true "Course placement"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /projections/{id}/courses [post]
func (h *AssignmentHandler) Add(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	var req dto.AddCourseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	assignment, err := h.assignments.Add(c.Request.Context(), c.Param("id"), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Move godoc
// @Summary Move a course or change its status
// @Tags Projection courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param code path string true "Course code"
// @Param payload body dto.UpdateCourseRequest true "New semester and/or status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /projections/{id}/courses/{code} [patch]
func (h *AssignmentHandler) Move(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	assignment, err := h.assignments.Move(c.Request.Context(), c.Param("id"), c.Param("code"), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Remove godoc
// @Summary Remove a course from a projection
// @Tags Projection courses
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param code path string true "Course code"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /projections/{id}/courses/{code} [delete]
func (h *AssignmentHandler) Remove(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	if err := h.assignments.Remove(c.Request.Context(), c.Param("id"), c.Param("code"), requester); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AutoSchedule godoc
// @Summary Generate a schedule for the pending catalog
// @Description Replaces every non-completed course with the scheduler output. Courses placed without their prerequisites are listed as advisory
// @Tags Projection courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param payload body dto.AutoScheduleRequest false "Catalog and approved courses"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /projections/{id}/auto [post]
func (h *AssignmentHandler) AutoSchedule(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	var req dto.AutoScheduleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.Catalog == "" {
		req.Catalog = c.Query("catalog")
	}
	result, err := h.scheduler.Run(c.Request.Context(), c.Param("id"), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"advisory": len(result.Advisory) > 0}
	response.JSON(c, http.StatusOK, result, nil, meta)
}
