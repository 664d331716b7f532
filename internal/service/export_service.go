package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
	"github.com/noah-isme/curriculum-planner-api/pkg/export"
)

// ExportFormat is a rendering format for projection exports.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

var (
	exportHeaders = []string{"semester", "code", "name", "credits", "status"}
	unsafeName    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered projection ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders projections as CSV or PDF documents.
type ExportService struct {
	projections projectionRepository
	assignments assignmentRepository
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(projections projectionRepository, assignments assignmentRepository, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{projections: projections, assignments: assignments, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the projection's assignments ordered by semester then code.
func (s *ExportService) Export(ctx context.Context, projectionID, requester string, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "format must be csv or pdf")
	}

	projection, err := s.projections.FindByID(ctx, nil, projectionID)
	if err != nil {
		return nil, storageError(err, "projection not found", "failed to load projection")
	}
	if err := authorizeOwner(projection, requester); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByProjection(ctx, nil, projection.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projection courses")
	}

	dataset := projectionDataset(assignments)
	base := unsafeName.ReplaceAllString(projection.VersionName, "_")
	if base == "" || base == "_" {
		base = "projection"
	}

	file := &ExportFile{Filename: fmt.Sprintf("%s.%s", base, format)}
	switch format {
	case ExportPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(dataset, projection.VersionName)
	default:
		file.ContentType = "text/csv; charset=utf-8"
		file.Data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render projection")
	}

	s.logger.Debug("projection exported", zap.String("projection_id", projection.ID), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return file, nil
}

func projectionDataset(assignments []models.AssignmentWithCourse) export.Dataset {
	rows := make([]map[string]string, 0, len(assignments))
	for _, a := range assignments {
		semester := ""
		if value, ok := a.HasSemester(); ok {
			semester = strconv.Itoa(value)
		}
		rows = append(rows, map[string]string{
			"semester": semester,
			"code":     a.CourseCode,
			"name":     a.CourseName,
			"credits":  strconv.Itoa(a.Credits),
			"status":   string(a.Status),
		})
	}

	metrics := planner.Summarize(assignments)
	return export.Dataset{
		Headers: exportHeaders,
		Rows:    rows,
		Widths:  []float64{1.2, 2, 5, 1.2, 1.8},
		Notes: []string{
			fmt.Sprintf("Total credits: %d", metrics.TotalCredits),
			fmt.Sprintf("Semesters: %d", metrics.SemesterCount),
		},
	}
}
