package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/response"
)

type historyService interface {
	History(ctx context.Context, studentID, program string) ([]models.HistoryRecord, error)
}

// HistoryHandler exposes the official academic history.
type HistoryHandler struct {
	transcripts historyService
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(transcripts historyService) *HistoryHandler {
	return &HistoryHandler{transcripts: transcripts}
}

// History godoc
// @Summary Student academic history
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param program path string true "Program code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /history/{studentId}/{program} [get]
func (h *HistoryHandler) History(c *gin.Context) {
	records, err := h.transcripts.History(c.Request.Context(), c.Param("studentId"), c.Param("program"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
