package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-planner-api/internal/dto"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
	"github.com/noah-isme/curriculum-planner-api/pkg/response"
)

type curriculumService interface {
	View(ctx context.Context, studentID string, req dto.CurriculumRequest) (*dto.CurriculumResponse, error)
}

// CurriculumHandler renders the curriculum-wide eligibility view.
type CurriculumHandler struct {
	curriculum curriculumService
}

// NewCurriculumHandler constructs a curriculum handler.
func NewCurriculumHandler(curriculum curriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

// View godoc
// @Summary Curriculum eligibility view
// @Description Evaluates every catalog course against the selected (or ideal, or newest) projection
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param projectionId query string false "Projection ID"
// @Param catalog query string false "Catalog revision"
// @Param program query string false "Program code used to read approved courses"
// @Param aprobadas query []string false "Approved course codes overriding the transcript"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{studentId}/curriculum [get]
func (h *CurriculumHandler) View(c *gin.Context) {
	var req dto.CurriculumRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	if approved := c.QueryArray("aprobadas"); len(approved) > 0 {
		req.Approved = approved
	}
	h.render(c, req)
}

// ViewWithApproved godoc
// @Summary Curriculum eligibility view with approved courses in the body
// @Tags Curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body dto.CurriculumRequest true "Selection and approved courses"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{studentId}/curriculum [post]
func (h *CurriculumHandler) ViewWithApproved(c *gin.Context) {
	var req dto.CurriculumRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.ProjectionID == "" {
		req.ProjectionID = c.Query("projectionId")
	}
	if req.Catalog == "" {
		req.Catalog = c.Query("catalog")
	}
	if req.Program == "" {
		req.Program = c.Query("program")
	}
	h.render(c, req)
}

func (h *CurriculumHandler) render(c *gin.Context, req dto.CurriculumRequest) {
	view, err := h.curriculum.View(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
