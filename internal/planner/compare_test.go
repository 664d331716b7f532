package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
)

func TestSummarize(t *testing.T) {
	metrics := Summarize([]models.AssignmentWithCourse{
		assignment("a", course("A-100", 6, 1), semesterPtr(1), models.StatusPlanned),
		assignment("b", course("A-200", 4, 1), semesterPtr(1), models.StatusCompleted),
		assignment("c", course("A-300", 5, 2), semesterPtr(3), models.StatusPlanned),
		assignment("d", course("A-400", 3, 2), nil, models.StatusPlanned),
	})

	assert.Equal(t, 18, metrics.TotalCredits)
	assert.Equal(t, 2, metrics.SemesterCount)
	assert.Equal(t, map[int]int{1: 10, 3: 5}, metrics.CreditsPerSemester)
}

func TestCompare(t *testing.T) {
	a, b, c, d, e := course("A-100", 6, 1), course("A-200", 6, 1), course("A-300", 6, 2), course("A-400", 6, 2), course("A-500", 6, 3)
	base := []models.AssignmentWithCourse{
		assignment("1", a, semesterPtr(1), models.StatusPlanned),
		assignment("2", b, semesterPtr(2), models.StatusPlanned),
		assignment("3", c, semesterPtr(3), models.StatusPlanned),
		assignment("4", d, semesterPtr(3), models.StatusPlanned),
	}
	other := []models.AssignmentWithCourse{
		assignment("5", a, semesterPtr(1), models.StatusPlanned),
		assignment("6", course("A200", 6, 1), semesterPtr(1), models.StatusPlanned),
		assignment("7", c, semesterPtr(4), models.StatusPlanned),
		assignment("8", e, semesterPtr(5), models.StatusPlanned),
	}

	diff := Compare(base, other)

	require.Len(t, diff.Advanced, 1)
	assert.Equal(t, "A-200", diff.Advanced[0].CourseCode)
	assert.Equal(t, 2, *diff.Advanced[0].From)
	assert.Equal(t, 1, *diff.Advanced[0].To)

	require.Len(t, diff.Delayed, 1)
	assert.Equal(t, "A-300", diff.Delayed[0].CourseCode)

	require.Len(t, diff.OnlyBase, 1)
	assert.Equal(t, "A-400", diff.OnlyBase[0].CourseCode)
	require.Len(t, diff.OnlyOther, 1)
	assert.Equal(t, "A-500", diff.OnlyOther[0].CourseCode)
}

func TestCompareUnplacedSemesters(t *testing.T) {
	a := course("A-100", 6, 1)
	diff := Compare(
		[]models.AssignmentWithCourse{assignment("1", a, nil, models.StatusPlanned)},
		[]models.AssignmentWithCourse{assignment("2", a, semesterPtr(2), models.StatusPlanned)},
	)
	assert.Len(t, diff.Advanced, 1)
	assert.Empty(t, diff.Delayed)
}
