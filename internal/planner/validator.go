// Package planner holds the curriculum projection rules: prerequisite and credit
// validation, the curriculum-wide eligibility view and the automatic scheduler.
// It is pure; callers load and persist state.
package planner

import (
	"fmt"
	"strings"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
)

const (
	DefaultMaxCredits           = 32
	DefaultMaxIterations        = 60
	DefaultMinApprovedKeyLength = 3
)

// Verdict is the outcome of a validation. Reason is empty when OK.
type Verdict struct {
	OK      bool
	Reason  string
	Missing []string
	Timing  []string
}

func allow() Verdict { return Verdict{OK: true} }

// Validator checks prerequisite ordering and the per-semester credit cap.
type Validator struct {
	maxCredits int
	minKeyLen  int
}

// NewValidator builds a validator; non-positive values fall back to the defaults.
func NewValidator(maxCredits, minApprovedKeyLength int) *Validator {
	if maxCredits <= 0 {
		maxCredits = DefaultMaxCredits
	}
	if minApprovedKeyLength <= 0 {
		minApprovedKeyLength = 1
	}
	return &Validator{maxCredits: maxCredits, minKeyLen: minApprovedKeyLength}
}

// MaxCredits returns the per-semester credit cap.
func (v *Validator) MaxCredits() int {
	return v.maxCredits
}

type prereqState int

const (
	prereqMissing prereqState = iota
	prereqFailed
	prereqTiming
	prereqSatisfied
)

// Prerequisites decides whether course may sit at target given the other
// assignments of the projection and the approved numeric keys.
//
// With a target semester only timing errors block; missing prerequisites are
// still reported in Verdict.Missing as advisory. Without a target both missing
// and timing errors block.
func (v *Validator) Prerequisites(course models.Course, assignments []models.AssignmentWithCourse, target *int, approved coursecode.Set) Verdict {
	var missing, timing []string
	for _, prereq := range course.Prerequisites {
		label := coursecode.Normalize(prereq)
		if label == "" {
			continue
		}
		key := coursecode.NumericKey(prereq)
		if key == "" {
			// no numeric key to match against the transcript or the plan
			missing = append(missing, label)
			continue
		}
		if len(key) >= v.minKeyLen && approved.Has(key) {
			continue
		}

		state, semester := resolvePrerequisite(key, assignments, target)
		switch state {
		case prereqSatisfied:
		case prereqFailed:
			missing = append(missing, label+" (failed)")
		case prereqTiming:
			if semester == nil {
				timing = append(timing, label+" (not scheduled)")
			} else {
				timing = append(timing, fmt.Sprintf("%s (scheduled for semester %d)", label, *semester))
			}
		default:
			missing = append(missing, label)
		}
	}

	verdict := Verdict{OK: true, Missing: missing, Timing: timing}
	if target != nil {
		if len(timing) > 0 {
			verdict.OK = false
			verdict.Reason = fmt.Sprintf("prerequisites not completed before semester %d: %s", *target, strings.Join(timing, ", "))
		}
		return verdict
	}

	if len(missing)+len(timing) > 0 {
		verdict.OK = false
		verdict.Reason = "missing prerequisites: " + strings.Join(append(append([]string{}, missing...), timing...), ", ")
	}
	return verdict
}

// resolvePrerequisite inspects every assignment matching key and keeps the most
// favourable outcome.
func resolvePrerequisite(key string, assignments []models.AssignmentWithCourse, target *int) (prereqState, *int) {
	state := prereqMissing
	var at *int
	for _, a := range assignments {
		if coursecode.NumericKey(a.CourseCode) != key {
			continue
		}
		switch a.Status {
		case models.StatusCompleted:
			return prereqSatisfied, a.Semester
		case models.StatusFailed:
			if state < prereqFailed {
				state = prereqFailed
			}
		case models.StatusPlanned:
			semester, placed := a.HasSemester()
			if placed && (target == nil || semester < *target) {
				return prereqSatisfied, a.Semester
			}
			if state < prereqTiming {
				state = prereqTiming
				at = a.Semester
			}
		}
	}
	return state, at
}

// CreditsForSemester sums the credits placed at semester, skipping excludingID.
func CreditsForSemester(assignments []models.AssignmentWithCourse, semester int, excludingID string) int {
	total := 0
	for _, a := range assignments {
		if excludingID != "" && a.ID == excludingID {
			continue
		}
		if s, ok := a.HasSemester(); ok && s == semester {
			total += a.Credits
		}
	}
	return total
}

// Credits rejects a placement of credits at semester that would exceed the cap.
func (v *Validator) Credits(assignments []models.AssignmentWithCourse, semester, credits int, excludingID string) Verdict {
	total := CreditsForSemester(assignments, semester, excludingID) + credits
	if total > v.maxCredits {
		return Verdict{Reason: fmt.Sprintf("semester %d would carry %d credits, above the %d credit cap", semester, total, v.maxCredits)}
	}
	return allow()
}

// Placement runs the prerequisite check for target followed by the credit check.
// New placements are strict: a prerequisite missing from both the approved set
// and the plan also rejects them. Moves of existing assignments only fail on
// timing errors, keeping missing prerequisites advisory.
func (v *Validator) Placement(course models.Course, others []models.AssignmentWithCourse, target int, approved coursecode.Set, strict bool) Verdict {
	verdict := v.Prerequisites(course, others, &target, approved)
	if !verdict.OK {
		return verdict
	}
	if strict && len(verdict.Missing) > 0 {
		verdict.OK = false
		verdict.Reason = fmt.Sprintf("missing prerequisites for semester %d: %s", target, strings.Join(verdict.Missing, ", "))
		return verdict
	}
	return v.Credits(others, target, course.Credits, "")
}

// Without returns assignments minus the one with the given id.
func Without(assignments []models.AssignmentWithCourse, id string) []models.AssignmentWithCourse {
	out := make([]models.AssignmentWithCourse, 0, len(assignments))
	for _, a := range assignments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// ApprovedWithCompleted merges approved keys with the keys of completed assignments.
func ApprovedWithCompleted(approved coursecode.Set, assignments []models.AssignmentWithCourse) coursecode.Set {
	merged := coursecode.Set{}
	merged.Merge(approved)
	for _, a := range assignments {
		if a.Status == models.StatusCompleted {
			merged.Add(a.CourseCode)
		}
	}
	return merged
}

func filterShortKeys(approved coursecode.Set, minLen int) coursecode.Set {
	out := make(coursecode.Set, len(approved))
	for key := range approved {
		if len(key) >= minLen {
			out[key] = struct{}{}
		}
	}
	return out
}
