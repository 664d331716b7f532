package planner

import (
	"fmt"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

// Placed is the current assignment of a course inside the viewed projection.
type Placed struct {
	AssignmentID string                  `json:"id"`
	Semester     *int                    `json:"semester"`
	Status       models.AssignmentStatus `json:"status"`
}

// CourseEligibility is one row of the curriculum-wide view.
type CourseEligibility struct {
	models.Course
	Eligible bool     `json:"elegible"`
	Reasons  []string `json:"motivos"`
	Assigned *Placed  `json:"asignado"`
}

// Eligibility evaluates every catalog course against the projection assignments.
// Assigned courses are re-validated at their own semester (excluding themselves)
// and flagged when their semester overflows the credit cap; unassigned courses
// are validated without a target semester.
func (v *Validator) Eligibility(catalog []models.Course, assignments []models.AssignmentWithCourse, approved coursecode.Set) []CourseEligibility {
	byCode := make(map[string]models.AssignmentWithCourse, len(assignments))
	byKey := make(map[string]models.AssignmentWithCourse, len(assignments))
	for _, a := range assignments {
		byCode[coursecode.Normalize(a.CourseCode)] = a
		if key := coursecode.NumericKey(a.CourseCode); key != "" {
			if _, exists := byKey[key]; !exists {
				byKey[key] = a
			}
		}
	}
	perSemester := Summarize(assignments).CreditsPerSemester

	result := make([]CourseEligibility, 0, len(catalog))
	for _, course := range catalog {
		row := CourseEligibility{Course: course, Reasons: []string{}}

		assignment, assigned := byCode[coursecode.Normalize(course.Code)]
		if !assigned {
			assignment, assigned = byKey[coursecode.NumericKey(course.Code)]
		}

		if assigned {
			row.Assigned = &Placed{AssignmentID: assignment.ID, Semester: assignment.Semester, Status: assignment.Status}
			verdict := v.Prerequisites(course, Without(assignments, assignment.ID), assignment.Semester, approved)
			if !verdict.OK {
				row.Reasons = append(row.Reasons, verdict.Reason)
			}
			if semester, ok := assignment.HasSemester(); ok {
				if total := perSemester[semester]; total > v.maxCredits {
					row.Reasons = append(row.Reasons, fmt.Sprintf("semester %d exceeds the %d credit cap (%d)", semester, v.maxCredits, total))
				}
			}
		} else {
			verdict := v.Prerequisites(course, assignments, nil, approved)
			if !verdict.OK {
				row.Reasons = append(row.Reasons, verdict.Reason)
			}
		}

		row.Eligible = len(row.Reasons) == 0
		result = append(result, row)
	}
	return result
}
