package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/service"
	"github.com/noah-isme/curriculum-planner-api/pkg/response"
)

type projectionService interface {
	Create(ctx context.Context, studentID string, req dto.CreateProjectionRequest) (*models.Projection, error)
	Get(ctx context.Context, id, requester string) (*models.ProjectionDetail, error)
	List(ctx context.Context, studentID string) ([]models.ProjectionDetail, error)
	Clone(ctx context.Context, sourceID, requester string, req dto.CloneProjectionRequest) (*models.ProjectionDetail, error)
	Update(ctx context.Context, id, requester string, req dto.UpdateProjectionRequest) (*models.Projection, error)
	Delete(ctx context.Context, id, requester string) error
	Compare(ctx context.Context, studentID, baseID, otherID string) (*models.ProjectionComparison, error)
}

type exportService interface {
	Export(ctx context.Context, projectionID, requester string, format service.ExportFormat) (*service.ExportFile, error)
}

// ProjectionHandler manages projection versions.
type ProjectionHandler struct {
	projections projectionService
	exports     exportService
}

// NewProjectionHandler constructs a projection handler.
func NewProjectionHandler(projections projectionService, exports exportService) *ProjectionHandler {
	return &ProjectionHandler{projections: projections, exports: exports}
}

// List godoc
// @Summary List projections of a student
// @Tags Projections
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/projections [get]
func (h *ProjectionHandler) List(c *gin.Context) {
	projections, err := h.projections.List(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projections, nil)
}

// Create godoc
// @Summary Create a projection
// @Tags Projections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body dto.CreateProjectionRequest false "Optional version name"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{studentId}/projections [post]
func (h *ProjectionHandler) Create(c *gin.Context) {
	var req dto.CreateProjectionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	projection, err := h.projections.Create(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, projection)
}

// Compare godoc
// @Summary Compare projections
// @Description Lists every version and, when two distinct ids are given, the courses that moved between them
// @Tags Projections
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param base query string false "Base projection ID"
// @Param other query string false "Compared projection ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/projections/compare [get]
func (h *ProjectionHandler) Compare(c *gin.Context) {
	comparison, err := h.projections.Compare(c.Request.Context(), c.Param("studentId"), c.Query("base"), c.Query("other"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comparison, nil)
}

// Get godoc
// @Summary Get a projection
// @Tags Projections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /projections/{id} [get]
func (h *ProjectionHandler) Get(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	detail, err := h.projections.Get(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Clone godoc
// @Summary Clone a projection
// @Tags Projections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param payload body dto.CloneProjectionRequest false "Optional version name"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projections/{id}/clone [post]
func (h *ProjectionHandler) Clone(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	var req dto.CloneProjectionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	clone, err := h.projections.Clone(c.Request.Context(), c.Param("id"), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clone)
}

// Update godoc
// @Summary Rename a projection or mark it ideal
// @Tags Projections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param payload body dto.UpdateProjectionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projections/{id} [patch]
func (h *ProjectionHandler) Update(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	var req dto.UpdateProjectionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	projection, err := h.projections.Update(c.Request.Context(), c.Param("id"), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, nil)
}

// Delete godoc
// @Summary Delete a projection
// @Tags Projections
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /projections/{id} [delete]
func (h *ProjectionHandler) Delete(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	if err := h.projections.Delete(c.Request.Context(), c.Param("id"), requester); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download a projection
// @Tags Projections
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Projection ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /projections/{id}/export [get]
func (h *ProjectionHandler) Export(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		return
	}
	file, err := h.exports.Export(c.Request.Context(), c.Param("id"), requester, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
