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

type catalogService interface {
	Sync(ctx context.Context, program, catalog string) (*service.CatalogSyncResult, error)
	List(ctx context.Context, catalog string) ([]models.Course, error)
}

type catalogSyncRequester interface {
	Request(program, catalog, trigger string) (string, error)
}

// CatalogHandler serves the course catalog.
type CatalogHandler struct {
	catalog catalogService
	sync    catalogSyncRequester
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog catalogService, sync catalogSyncRequester) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, sync: sync}
}

// Sync godoc
// @Summary Synchronise and list a program catalog
// @Description Fetches the catalog from the curriculum service, stores changed courses and returns them
// @Tags Catalog
// @Produce json
// @Param program path string true "Program code"
// @Param catalog path string true "Catalog revision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /catalog/{program}/{catalog} [get]
func (h *CatalogHandler) Sync(c *gin.Context) {
	result, err := h.catalog.Sync(c.Request.Context(), c.Param("program"), c.Param("catalog"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Courses, nil, map[string]interface{}{
		"received":  result.Received,
		"skipped":   result.Skipped,
		"written":   result.Written,
		"unchanged": result.Unchanged,
	})
}

// EnqueueSync godoc
// @Summary Queue a catalog synchronisation
// @Tags Catalog
// @Produce json
// @Param program path string true "Program code"
// @Param catalog path string true "Catalog revision"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalog/{program}/{catalog}/sync [post]
func (h *CatalogHandler) EnqueueSync(c *gin.Context) {
	program, catalog := c.Param("program"), c.Param("catalog")
	jobID, err := h.sync.Request(program, catalog, "request")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.CatalogSyncAccepted{JobID: jobID, Program: program, Catalog: catalog})
}

// Courses godoc
// @Summary List stored courses
// @Tags Catalog
// @Produce json
// @Param catalog query string false "Catalog revision; every catalog when empty"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	courses, err := h.catalog.List(c.Request.Context(), c.Query("catalog"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"count": len(courses)})
}
