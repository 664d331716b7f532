package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

var (
	courseX = course("MAT-10001", 3, 1)
	courseY = course("MAT-10002", 4, 1, "MAT-10001")
)

func TestPrerequisitesWithTarget(t *testing.T) {
	v := NewValidator(32, 3)

	tests := []struct {
		name        string
		assignments []models.AssignmentWithCourse
		approved    coursecode.Set
		target      int
		ok          bool
		missing     int
		timing      int
	}{
		{name: "approved key", approved: coursecode.NewSet("10001"), target: 1, ok: true},
		{name: "completed in plan", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(1), models.StatusCompleted)}, target: 1, ok: true},
		{name: "planned strictly before", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(1), models.StatusPlanned)}, target: 2, ok: true},
		{name: "planned same semester", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(2), models.StatusPlanned)}, target: 2, ok: false, timing: 1},
		{name: "planned later", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(4), models.StatusPlanned)}, target: 2, ok: false, timing: 1},
		{name: "planned without semester", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, nil, models.StatusPlanned)}, target: 2, ok: false, timing: 1},
		{name: "failed counts as missing", assignments: []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(1), models.StatusFailed)}, target: 2, ok: true, missing: 1},
		{name: "absent is advisory", target: 2, ok: true, missing: 1},
		{name: "hyphen variant matches", assignments: []models.AssignmentWithCourse{assignment("a1", course("MAT10001", 3, 1), semesterPtr(1), models.StatusPlanned)}, target: 2, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := tc.target
			verdict := v.Prerequisites(courseY, tc.assignments, &target, tc.approved)
			assert.Equal(t, tc.ok, verdict.OK)
			assert.Len(t, verdict.Missing, tc.missing)
			assert.Len(t, verdict.Timing, tc.timing)
			if !tc.ok {
				assert.Contains(t, verdict.Reason, "MAT-10001")
			}
		})
	}
}

func TestPrerequisitesWithoutTargetReportsEverything(t *testing.T) {
	v := NewValidator(32, 3)

	verdict := v.Prerequisites(courseY, nil, nil, nil)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "missing prerequisites")

	unplaced := []models.AssignmentWithCourse{assignment("a1", courseX, nil, models.StatusPlanned)}
	verdict = v.Prerequisites(courseY, unplaced, nil, nil)
	assert.False(t, verdict.OK)
	assert.Len(t, verdict.Timing, 1)

	placed := []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(3), models.StatusPlanned)}
	verdict = v.Prerequisites(courseY, placed, nil, nil)
	assert.True(t, verdict.OK)
}

func TestPrerequisitesIgnoreShortApprovedKeys(t *testing.T) {
	v := NewValidator(32, 3)
	short := course("X-2", 3, 2, "A-12")

	verdict := v.Prerequisites(short, nil, nil, coursecode.NewSet("12"))
	assert.False(t, verdict.OK)

	verdict = NewValidator(32, 1).Prerequisites(short, nil, nil, coursecode.NewSet("12"))
	assert.True(t, verdict.OK)
}

func TestPrerequisitesCodelessEntryIsMissing(t *testing.T) {
	v := NewValidator(32, 3)
	english := course("INF-00300", 4, 3, "ingles")
	target := 3

	verdict := v.Prerequisites(english, nil, &target, coursecode.NewSet("00100"))
	assert.True(t, verdict.OK)
	assert.Equal(t, []string{"INGLES"}, verdict.Missing)

	verdict = v.Placement(english, nil, 3, nil, true)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "INGLES")

	assert.True(t, v.Placement(english, nil, 3, nil, false).OK)
	assert.False(t, v.Prerequisites(english, nil, nil, nil).OK)
}

func TestSatisfiedPrerequisitesAlwaysValidate(t *testing.T) {
	v := NewValidator(32, 3)
	for s := 2; s <= 10; s++ {
		for before := 1; before < s; before++ {
			target := s
			plan := []models.AssignmentWithCourse{assignment("a1", courseX, semesterPtr(before), models.StatusPlanned)}
			assert.True(t, v.Prerequisites(courseY, plan, &target, nil).OK, "semester %d before %d", before, s)
		}
	}
}

func TestCreditsForSemester(t *testing.T) {
	plan := []models.AssignmentWithCourse{
		assignment("a1", course("A-100", 10, 1), semesterPtr(1), models.StatusPlanned),
		assignment("a2", course("A-200", 12, 1), semesterPtr(1), models.StatusCompleted),
		assignment("a3", course("A-300", 8, 2), semesterPtr(2), models.StatusPlanned),
		assignment("a4", course("A-400", 6, 2), nil, models.StatusPlanned),
	}

	assert.Equal(t, 22, CreditsForSemester(plan, 1, ""))
	assert.Equal(t, 12, CreditsForSemester(plan, 1, "a1"))
	assert.Equal(t, 8, CreditsForSemester(plan, 2, ""))
	assert.Equal(t, 0, CreditsForSemester(plan, 3, ""))
}

func TestCreditCap(t *testing.T) {
	v := NewValidator(32, 3)
	plan := []models.AssignmentWithCourse{
		assignment("a1", course("A-100", 20, 1), semesterPtr(1), models.StatusPlanned),
		assignment("a2", course("A-200", 10, 1), semesterPtr(1), models.StatusPlanned),
	}

	assert.True(t, v.Credits(plan, 1, 2, "").OK)
	verdict := v.Credits(plan, 1, 3, "")
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "33")
	assert.True(t, v.Credits(plan, 1, 12, "a2").OK)
}

func TestPlacementScenario(t *testing.T) {
	v := NewValidator(32, 3)

	verdict := v.Placement(courseY, nil, 1, nil, true)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "MAT-10001")

	plan := []models.AssignmentWithCourse{}
	assert.True(t, v.Placement(courseX, plan, 1, nil, true).OK)
	plan = append(plan, assignment("x", courseX, semesterPtr(1), models.StatusPlanned))
	assert.True(t, v.Placement(courseY, plan, 2, nil, true).OK)

	verdict = v.Placement(courseY, plan, 1, nil, true)
	assert.False(t, verdict.OK)
	assert.Len(t, verdict.Timing, 1)
}

func TestPlacementMoveKeepsMissingAdvisory(t *testing.T) {
	v := NewValidator(32, 3)
	verdict := v.Placement(courseY, nil, 3, nil, false)
	assert.True(t, verdict.OK)
	assert.Len(t, verdict.Missing, 1)
}

func TestPlacementRejectsCreditOverflow(t *testing.T) {
	v := NewValidator(32, 3)
	plan := []models.AssignmentWithCourse{
		assignment("a1", course("A-100", 30, 1), semesterPtr(1), models.StatusPlanned),
	}
	verdict := v.Placement(courseX, plan, 1, nil, true)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "credit cap")
}
