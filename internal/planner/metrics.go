package planner

import "github.com/noah-isme/curriculum-planner-api/internal/models"

// Summarize aggregates total credits, distinct placed semesters and credits per semester.
func Summarize(assignments []models.AssignmentWithCourse) models.ProjectionMetrics {
	metrics := models.ProjectionMetrics{CreditsPerSemester: map[int]int{}}
	for _, a := range assignments {
		metrics.TotalCredits += a.Credits
		if semester, ok := a.HasSemester(); ok {
			metrics.CreditsPerSemester[semester] += a.Credits
		}
	}
	metrics.SemesterCount = len(metrics.CreditsPerSemester)
	return metrics
}
