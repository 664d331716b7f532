package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/integration"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// Candidate field names per logical course attribute, in priority order.
var (
	courseCodeFields    = []string{"codigo", "CODIGO", "codAsignatura", "cod_asignatura", "cod", "sigla"}
	courseNameFields    = []string{"asignatura", "nombre", "nombre_asignatura", "descripcion", "title"}
	courseCreditsFields = []string{"creditos", "credito", "credits"}
	courseLevelFields   = []string{"nivel", "level", "semestre"}
	nestedCodeFields    = []string{"codigo", "code", "cod", "sigla"}
)

type curriculumFeed interface {
	FetchCatalog(ctx context.Context, program, catalog string) ([]integration.RawCourse, error)
}

type courseRepository interface {
	List(ctx context.Context, catalog string) ([]models.Course, error)
	FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Course, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
	CreateIfMissing(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
}

// CatalogSyncResult summarises one synchronisation against the curriculum feed.
type CatalogSyncResult struct {
	Program   string          `json:"program"`
	Catalog   string          `json:"catalog"`
	Received  int             `json:"received"`
	Skipped   int             `json:"skipped"`
	Written   int             `json:"written"`
	Unchanged int             `json:"unchanged"`
	Courses   []models.Course `json:"courses"`
}

// CatalogService keeps the stored catalog in sync with the curriculum feed and serves it.
type CatalogService struct {
	feed     curriculumFeed
	repo     courseRepository
	cache    *CacheService
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(feed curriculumFeed, repo courseRepository, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{feed: feed, repo: repo, cache: cache, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

// Sync fetches the catalog from the feed, normalizes it and writes changed courses.
func (s *CatalogService) Sync(ctx context.Context, program, catalog string) (*CatalogSyncResult, error) {
	return s.sync(ctx, program, catalog, "request")
}

// SyncFromJob is Sync labelled for background triggers.
func (s *CatalogService) SyncFromJob(ctx context.Context, program, catalog, trigger string) error {
	_, err := s.sync(ctx, program, catalog, trigger)
	return err
}

func (s *CatalogService) sync(ctx context.Context, program, catalog, trigger string) (result *CatalogSyncResult, err error) {
	defer func() { s.metrics.RecordCatalogSync(trigger, err) }()

	program = strings.TrimSpace(program)
	catalog = strings.TrimSpace(catalog)
	if program == "" || catalog == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "program and catalog are required")
	}

	raw, err := s.feed.FetchCatalog(ctx, program, catalog)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stored courses")
	}
	members, err := s.repo.List(ctx, catalog)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stored courses")
	}
	inCatalog := make(map[string]struct{}, len(members))
	for _, course := range members {
		inCatalog[course.Code] = struct{}{}
	}
	storedByKey := make(map[string]models.Course, len(stored))
	storedByCode := make(map[string]models.Course, len(stored))
	for _, course := range stored {
		storedByCode[course.Code] = course
		if key := coursecode.NumericKey(course.Code); key != "" {
			if current, ok := storedByKey[key]; !ok || coursecode.Prefer(current.Code, course.Code) == course.Code {
				storedByKey[key] = course
			}
		}
	}

	result = &CatalogSyncResult{Program: program, Catalog: catalog, Received: len(raw)}
	parsed := make(map[string]models.Course)
	order := make([]string, 0, len(raw))
	for _, record := range raw {
		course, ok := ParseRawCourse(record)
		if !ok {
			result.Skipped++
			continue
		}
		course.Catalog = catalog
		key := coursecode.NumericKey(course.Code)
		if existing, ok := storedByKey[key]; ok {
			course.Code = existing.Code
		}
		if current, ok := parsed[key]; ok {
			if coursecode.Prefer(current.Code, course.Code) == current.Code {
				continue
			}
		} else {
			order = append(order, key)
		}
		parsed[key] = course
	}

	representative := func(code string) string {
		key := coursecode.NumericKey(code)
		if key == "" {
			return coursecode.Normalize(code)
		}
		if course, ok := storedByKey[key]; ok {
			return course.Code
		}
		if course, ok := parsed[key]; ok {
			return course.Code
		}
		return coursecode.Normalize(code)
	}

	courses := make([]models.Course, 0, len(order))
	for _, key := range order {
		course := parsed[key]
		course.Prerequisites = canonicalPrerequisites(course.Prerequisites, representative)

		if existing, ok := storedByCode[course.Code]; ok && existing.SameContent(course) {
			if _, member := inCatalog[course.Code]; member {
				result.Unchanged++
				existing.Catalog = catalog
				courses = append(courses, existing)
				continue
			}
		}
		if err := s.repo.Upsert(ctx, nil, &course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store course")
		}
		result.Written++
		courses = append(courses, course)
	}

	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Level != courses[j].Level {
			return courses[i].Level < courses[j].Level
		}
		return courses[i].Code < courses[j].Code
	})
	result.Courses = courses

	s.cache.InvalidateCatalog(ctx, catalog)
	s.logger.Info("catalog synchronised",
		zap.String("program", program),
		zap.String("catalog", catalog),
		zap.String("trigger", trigger),
		zap.Int("received", result.Received),
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// List returns stored courses of a catalog, or of every catalog when catalog is empty.
func (s *CatalogService) List(ctx context.Context, catalog string) ([]models.Course, error) {
	catalog = strings.TrimSpace(catalog)
	key := CatalogCacheKey(catalog)

	var cached []models.Course
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	courses, err := s.repo.List(ctx, catalog)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	_ = s.cache.Set(ctx, key, courses, s.cacheTTL)
	return courses, nil
}

// ParseRawCourse resolves a heterogeneous feed record into a Course. Records
// without a code or without numeric positive credits and level are rejected.
func ParseRawCourse(record integration.RawCourse) (models.Course, bool) {
	code := coursecode.Normalize(firstString(record, courseCodeFields))
	if code == "" {
		return models.Course{}, false
	}
	credits, ok := firstInt(record, courseCreditsFields)
	if !ok || credits <= 0 {
		return models.Course{}, false
	}
	level, ok := firstInt(record, courseLevelFields)
	if !ok || level <= 0 {
		return models.Course{}, false
	}
	name := strings.TrimSpace(firstString(record, courseNameFields))
	if name == "" {
		name = code
	}

	return models.Course{
		Code:          code,
		Name:          name,
		Credits:       credits,
		Level:         level,
		Prerequisites: extractPrerequisites(record),
	}, true
}

func extractPrerequisites(record integration.RawCourse) []string {
	fields := make([]string, 0, 2)
	for field := range record {
		if strings.Contains(strings.ToLower(field), "req") {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	var codes []string
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch val := v.(type) {
		case nil:
		case string:
			codes = append(codes, coursecode.SplitList(val)...)
		case float64:
			codes = append(codes, strconv.FormatFloat(val, 'f', -1, 64))
		case json.Number:
			codes = append(codes, val.String())
		case []interface{}:
			for _, item := range val {
				walk(item)
			}
		case map[string]interface{}:
			if code := firstString(val, nestedCodeFields); code != "" {
				codes = append(codes, code)
			}
		}
	}
	for _, field := range fields {
		walk(record[field])
	}

	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = coursecode.Normalize(code)
		if code == "" || coursecode.IsPlaceholder(code) {
			continue
		}
		out = append(out, code)
	}
	return out
}

func canonicalPrerequisites(prereqs []string, representative func(string) string) []string {
	seen := make(map[string]struct{}, len(prereqs))
	out := make([]string, 0, len(prereqs))
	for _, prereq := range prereqs {
		code := representative(prereq)
		if _, dup := seen[code]; dup || code == "" {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func firstString(obj map[string]interface{}, fields []string) string {
	for _, field := range fields {
		switch val := obj[field].(type) {
		case string:
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			return val.String()
		}
	}
	return ""
}

func firstInt(obj map[string]interface{}, fields []string) (int, bool) {
	for _, field := range fields {
		switch val := obj[field].(type) {
		case float64:
			return int(math.Round(val)), true
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return int(math.Round(f)), true
			}
		case string:
			trimmed := strings.TrimSpace(val)
			if trimmed == "" {
				continue
			}
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return int(math.Round(f)), true
			}
			return 0, false
		}
	}
	return 0, false
}
