package planner

import (
	"sort"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

// Diff lists the courses that moved between two projections and the ones present in only one.
type Diff struct {
	Advanced  []models.ProjectionMove
	Delayed   []models.ProjectionMove
	OnlyBase  []models.AssignmentWithCourse
	OnlyOther []models.AssignmentWithCourse
}

// Compare matches assignments by numeric key. A course placed in one projection
// and unplaced in the other counts as delayed when it loses its semester and as
// advanced when it gains one.
func Compare(base, other []models.AssignmentWithCourse) Diff {
	otherByKey := make(map[string]models.AssignmentWithCourse, len(other))
	for _, a := range other {
		otherByKey[matchKey(a.CourseCode)] = a
	}

	diff := Diff{
		Advanced:  []models.ProjectionMove{},
		Delayed:   []models.ProjectionMove{},
		OnlyBase:  []models.AssignmentWithCourse{},
		OnlyOther: []models.AssignmentWithCourse{},
	}
	seen := make(map[string]struct{}, len(base))
	for _, a := range base {
		key := matchKey(a.CourseCode)
		seen[key] = struct{}{}
		match, ok := otherByKey[key]
		if !ok {
			diff.OnlyBase = append(diff.OnlyBase, a)
			continue
		}
		move := models.ProjectionMove{CourseCode: a.CourseCode, CourseName: a.CourseName, From: a.Semester, To: match.Semester}
		switch semesterOrder(a.Semester, match.Semester) {
		case -1:
			diff.Delayed = append(diff.Delayed, move)
		case 1:
			diff.Advanced = append(diff.Advanced, move)
		}
	}
	for _, a := range other {
		if _, ok := seen[matchKey(a.CourseCode)]; !ok {
			diff.OnlyOther = append(diff.OnlyOther, a)
		}
	}

	sortMoves(diff.Advanced)
	sortMoves(diff.Delayed)
	return diff
}

func matchKey(code string) string {
	if key := coursecode.NumericKey(code); key != "" {
		return key
	}
	return coursecode.Normalize(code)
}

// semesterOrder returns 1 when to is earlier than from, -1 when later, 0 when equal.
// An unplaced semester sorts after every placed one.
func semesterOrder(from, to *int) int {
	switch {
	case from == nil && to == nil:
		return 0
	case from == nil:
		return 1
	case to == nil:
		return -1
	case *to < *from:
		return 1
	case *to > *from:
		return -1
	}
	return 0
}

func sortMoves(moves []models.ProjectionMove) {
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].CourseCode < moves[j].CourseCode })
}
