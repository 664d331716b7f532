package planner

import (
	"sort"
	"strings"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

// Pass records which step of the scheduler placed a course.
type Pass string

const (
	PassPrerequisites Pass = "prerequisites"
	// PassFill packs idle capacity without checking prerequisites; its output is advisory.
	PassFill   Pass = "fill"
	PassForced Pass = "forced"
)

// ScheduledCourse is one course placed by the scheduler.
type ScheduledCourse struct {
	Course   models.Course
	Semester int
	Pass     Pass
}

// Plan is the scheduler output.
type Plan struct {
	Courses      []ScheduledCourse
	Unscheduled  []models.Course
	Iterations   int
	ForcedGroups int
}

// Scheduler greedily fills future semesters with the pending catalog.
type Scheduler struct {
	maxCredits    int
	maxIterations int
	minKeyLen     int
}

// NewScheduler builds a scheduler; non-positive values fall back to the defaults.
// Approved keys shorter than minApprovedKeyLength are ignored, as in Validator.
func NewScheduler(maxCredits, maxIterations, minApprovedKeyLength int) *Scheduler {
	if maxCredits <= 0 {
		maxCredits = DefaultMaxCredits
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if minApprovedKeyLength <= 0 {
		minApprovedKeyLength = 1
	}
	return &Scheduler{maxCredits: maxCredits, maxIterations: maxIterations, minKeyLen: minApprovedKeyLength}
}

// Schedule computes the replacement for every non-completed assignment. Only
// completed assignments in current are retained; the result never includes a
// course whose numeric key is approved or completed.
//
// The loop stops when nothing is pending or after maxIterations semesters; in
// the latter case leftovers are returned in Plan.Unscheduled. Courses worth
// more than the credit cap are never placed and are reported there as well.
func (s *Scheduler) Schedule(catalog []models.Course, current []models.AssignmentWithCourse, approved coursecode.Set) Plan {
	completed := make([]models.AssignmentWithCourse, 0, len(current))
	start := 1
	for _, a := range current {
		if a.Status != models.StatusCompleted {
			continue
		}
		completed = append(completed, a)
		if semester, ok := a.HasSemester(); ok && semester+1 > start {
			start = semester + 1
		}
	}
	planned := ApprovedWithCompleted(filterShortKeys(approved, s.minKeyLen), completed)

	plan := Plan{}
	pending := make([]models.Course, 0, len(catalog))
	for _, course := range Deduplicate(catalog) {
		switch {
		case planned.Has(coursecode.NumericKey(course.Code)):
		case course.Credits > s.maxCredits:
			plan.Unscheduled = append(plan.Unscheduled, course)
		default:
			pending = append(pending, course)
		}
	}

	semester := start
	for len(pending) > 0 && plan.Iterations < s.maxIterations {
		plan.Iterations++
		load := 0
		var selection []ScheduledCourse
		take := func(course models.Course, pass Pass) bool {
			key := coursecode.NumericKey(course.Code)
			if planned.Has(key) || load+course.Credits > s.maxCredits {
				return false
			}
			load += course.Credits
			planned[key] = struct{}{}
			selection = append(selection, ScheduledCourse{Course: course, Semester: semester, Pass: pass})
			return true
		}

		candidates := make([]models.Course, 0, len(pending))
		for _, course := range pending {
			if prerequisitesPlanned(course, planned) {
				candidates = append(candidates, course)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.Level != b.Level {
				return a.Level < b.Level
			}
			if a.Credits != b.Credits {
				return a.Credits > b.Credits
			}
			return a.Code < b.Code
		})
		for _, course := range candidates {
			take(course, PassPrerequisites)
		}

		if load < s.maxCredits {
			fill := make([]models.Course, 0, len(pending))
			for _, course := range pending {
				if course.Level <= semester && !planned.Has(coursecode.NumericKey(course.Code)) {
					fill = append(fill, course)
				}
			}
			sort.SliceStable(fill, func(i, j int) bool {
				if fill[i].Level != fill[j].Level {
					return fill[i].Level < fill[j].Level
				}
				return fill[i].Code < fill[j].Code
			})
			for _, course := range fill {
				take(course, PassFill)
			}
		}

		if len(selection) == 0 {
			plan.ForcedGroups++
			group := lowestLevelGroup(pending)
			// every pending course fits the cap, so the first take always succeeds
			for _, course := range group {
				take(course, PassForced)
			}
		}

		placed := make(map[string]struct{}, len(selection))
		for _, sc := range selection {
			placed[coursecode.NumericKey(sc.Course.Code)] = struct{}{}
		}
		remaining := pending[:0]
		for _, course := range pending {
			if _, ok := placed[coursecode.NumericKey(course.Code)]; !ok {
				remaining = append(remaining, course)
			}
		}
		pending = remaining
		plan.Courses = append(plan.Courses, selection...)
		semester++
	}

	plan.Unscheduled = append(plan.Unscheduled, pending...)
	return plan
}

// Deduplicate keeps one course per numeric key, preferring the hyphenated code.
// Courses without digits in their code are dropped. Output is sorted by code.
func Deduplicate(catalog []models.Course) []models.Course {
	byKey := make(map[string]models.Course, len(catalog))
	for _, course := range catalog {
		key := coursecode.NumericKey(course.Code)
		if key == "" {
			continue
		}
		existing, ok := byKey[key]
		if !ok || coursecode.Prefer(existing.Code, course.Code) != existing.Code {
			byKey[key] = course
		}
	}
	out := make([]models.Course, 0, len(byKey))
	for _, course := range byKey {
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// prerequisitesPlanned is false for prerequisites without digits: they can
// never be approved, so such courses only enter through the fill or forced pass.
func prerequisitesPlanned(course models.Course, planned coursecode.Set) bool {
	for _, prereq := range course.Prerequisites {
		if strings.TrimSpace(prereq) == "" {
			continue
		}
		if !planned.Has(coursecode.NumericKey(prereq)) {
			return false
		}
	}
	return true
}

func lowestLevelGroup(pending []models.Course) []models.Course {
	lowest := pending[0].Level
	for _, course := range pending[1:] {
		if course.Level < lowest {
			lowest = course.Level
		}
	}
	group := make([]models.Course, 0)
	for _, course := range pending {
		if course.Level == lowest {
			group = append(group, course)
		}
	}
	return group
}
