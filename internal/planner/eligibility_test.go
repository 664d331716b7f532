package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

func TestEligibilityView(t *testing.T) {
	v := NewValidator(32, 3)
	big := course("INF-30001", 30, 2)
	catalog := []models.Course{courseX, courseY, big, course("INF-40001", 4, 3, "INF-30001")}
	plan := []models.AssignmentWithCourse{
		assignment("x", courseX, semesterPtr(2), models.StatusPlanned),
		assignment("y", courseY, semesterPtr(2), models.StatusPlanned),
		assignment("b", big, semesterPtr(2), models.StatusPlanned),
	}

	rows := v.Eligibility(catalog, plan, coursecode.Set{})
	require.Len(t, rows, 4)

	assert.Equal(t, "MAT-10001", rows[0].Code)
	require.NotNil(t, rows[0].Assigned)
	assert.Equal(t, "x", rows[0].Assigned.AssignmentID)
	assert.False(t, rows[0].Eligible)
	require.Len(t, rows[0].Reasons, 1)
	assert.Contains(t, rows[0].Reasons[0], "credit cap")

	assert.False(t, rows[1].Eligible)
	assert.Len(t, rows[1].Reasons, 2)

	assert.Nil(t, rows[3].Assigned)
	assert.True(t, rows[3].Eligible, "prerequisite placed at a semester counts for the unassigned view")
	assert.Empty(t, rows[3].Reasons)
}

func TestEligibilityWithoutProjection(t *testing.T) {
	v := NewValidator(32, 3)
	rows := v.Eligibility([]models.Course{courseX, courseY}, nil, coursecode.NewSet("10001"))

	require.Len(t, rows, 2)
	assert.True(t, rows[0].Eligible)
	assert.True(t, rows[1].Eligible)
	assert.NotNil(t, rows[1].Reasons)

	rows = v.Eligibility([]models.Course{courseY}, nil, coursecode.Set{})
	assert.False(t, rows[0].Eligible)
	assert.Contains(t, rows[0].Reasons[0], "MAT-10001")
}

func TestEligibilityMatchesAliasCodes(t *testing.T) {
	v := NewValidator(32, 3)
	alias := course("MAT10001", 3, 1)
	plan := []models.AssignmentWithCourse{assignment("x", alias, semesterPtr(1), models.StatusCompleted)}

	rows := v.Eligibility([]models.Course{courseX}, plan, nil)
	require.NotNil(t, rows[0].Assigned)
	assert.Equal(t, models.StatusCompleted, rows[0].Assigned.Status)
}
