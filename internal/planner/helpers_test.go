package planner

import (
	"github.com/noah-isme/curriculum-planner-api/internal/models"
)

func course(code string, credits, level int, prereqs ...string) models.Course {
	return models.Course{Code: code, Name: "Course " + code, Credits: credits, Level: level, Prerequisites: prereqs, Catalog: "2020"}
}

func semesterPtr(v int) *int { return &v }

func assignment(id string, c models.Course, semester *int, status models.AssignmentStatus) models.AssignmentWithCourse {
	return models.AssignmentWithCourse{
		Assignment: models.Assignment{
			ID:           id,
			ProjectionID: "proj-1",
			CourseCode:   c.Code,
			Semester:     semester,
			Status:       status,
		},
		CourseName:    c.Name,
		Credits:       c.Credits,
		Level:         c.Level,
		Prerequisites: c.Prerequisites,
	}
}
