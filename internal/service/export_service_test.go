package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

func newExportFixture() (*ExportService, *plannerStore, models.Projection) {
	store := newPlannerStore()
	store.addCourse(testCourse("DCCB-00106", 6, 1))
	store.addCourse(testCourse("DCCB-00107", 6, 2, "DCCB-00106"))
	store.addCourse(testCourse("ECIN-00900", 4, 3))
	p := store.addProjection("20201234", "Plan A/2024", false)
	store.place(p.ID, "DCCB-00107", 2, models.StatusPlanned)
	store.place(p.ID, "DCCB-00106", 1, models.StatusCompleted)
	store.place(p.ID, "ECIN-00900", 0, models.StatusPlanned)
	svc := NewExportService(projectionRepoStub{store}, assignmentRepoStub{store}, zap.NewNop(), nil, nil)
	return svc, store, p
}

func TestExportServiceCSV(t *testing.T) {
	svc, _, p := newExportFixture()

	file, err := svc.Export(context.Background(), p.ID, "20201234", "")
	require.NoError(t, err)
	assert.Equal(t, "Plan_A_2024.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "semester,code,name,credits,status", lines[0])
	assert.Equal(t, "1,DCCB-00106,Course DCCB-00106,6,cursado", lines[1])
	assert.Equal(t, "2,DCCB-00107,Course DCCB-00107,6,proyectado", lines[2])
	assert.Equal(t, ",ECIN-00900,Course ECIN-00900,4,proyectado", lines[3])
}

func TestExportServicePDF(t *testing.T) {
	svc, _, p := newExportFixture()

	file, err := svc.Export(context.Background(), p.ID, "", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "Plan_A_2024.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceRejections(t *testing.T) {
	svc, _, p := newExportFixture()

	_, err := svc.Export(context.Background(), p.ID, "20201234", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest))

	_, err = svc.Export(context.Background(), p.ID, "20209999", ExportCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Export(context.Background(), "missing", "20201234", ExportCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
