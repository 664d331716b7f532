// Package coursecode canonicalises course codes published by the institutional feeds.
//
// Two forms are used: Normalize keeps the display identity of a code, NumericKey
// yields the looser key used to match cosmetic variants such as "DCCB-00141" and
// "DCCB00141".
package coursecode

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var listSeparators = regexp.MustCompile(`(?i)[;,]|\s+y\s+|\s+o\s+|\s*\+\s*|\s*/\s*`)

// Normalize trims surrounding whitespace and upper-cases the code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NumericKey strips every non-digit character from the code.
func NumericKey(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameCourse reports whether both codes resolve to the same non-empty numeric key.
func SameCourse(a, b string) bool {
	ka := NumericKey(a)
	return ka != "" && ka == NumericKey(b)
}

// IsCanonical reports whether the code uses the hyphenated published form.
func IsCanonical(code string) bool {
	return strings.Contains(code, "-")
}

// Prefer returns the representative between two codes sharing a numeric key.
// The hyphenated form wins; otherwise the current representative is kept.
func Prefer(current, candidate string) string {
	if current == "" {
		return candidate
	}
	if IsCanonical(candidate) && !IsCanonical(current) {
		return candidate
	}
	return current
}

// SplitList splits a free-text list of codes ("A, B y C / D") into trimmed items.
func SplitList(raw string) []string {
	parts := listSeparators.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var placeholders = map[string]struct{}{
	"NINGUNO": {}, "NINGUNA": {}, "NO": {}, "NO TIENE": {}, "SIN PRERREQUISITOS": {},
	"SIN REQUISITOS": {}, "N/A": {}, "NA": {}, "-": {}, "0": {},
}

// IsPlaceholder reports whether a prerequisite entry means "no prerequisite".
func IsPlaceholder(code string) bool {
	_, ok := placeholders[Normalize(code)]
	return ok
}

// Set is a set of numeric keys.
type Set map[string]struct{}

// NewSet builds a set from already-computed keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// Add inserts the numeric key of code; codes without digits are ignored.
func (s Set) Add(code string) {
	if key := NumericKey(code); key != "" {
		s[key] = struct{}{}
	}
}

// Has reports whether key is present.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Merge adds every key of other into s.
func (s Set) Merge(other Set) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// Keys returns the sorted members.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseApproved flattens an arbitrary decoded JSON value (string, number, array
// or object) into the numeric keys of the course codes it mentions.
func ParseApproved(input interface{}) Set {
	codes := Set{}
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch val := v.(type) {
		case nil:
		case string:
			for _, item := range SplitList(val) {
				codes.Add(item)
			}
		case float64:
			codes.Add(strconv.FormatFloat(val, 'f', -1, 64))
		case int:
			codes.Add(strconv.Itoa(val))
		case json.Number:
			codes.Add(val.String())
		case []string:
			for _, item := range val {
				walk(item)
			}
		case []interface{}:
			for _, item := range val {
				walk(item)
			}
		case map[string]interface{}:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(input)
	return codes
}
