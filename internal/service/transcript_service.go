package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/pkg/coursecode"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type transcriptFeed interface {
	FetchHistory(ctx context.Context, studentID, program string) ([]models.HistoryRecord, error)
}

// TranscriptService exposes the official academic history and the approved codes derived from it.
type TranscriptService struct {
	feed     transcriptFeed
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(feed transcriptFeed, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{feed: feed, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// History returns the transcript records of the student in a program.
func (s *TranscriptService) History(ctx context.Context, studentID, program string) ([]models.HistoryRecord, error) {
	studentID = strings.TrimSpace(studentID)
	program = strings.TrimSpace(program)
	if studentID == "" || program == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "student and program are required")
	}

	key := TranscriptCacheKey(studentID, program)
	var cached []models.HistoryRecord
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	records, err := s.feed.FetchHistory(ctx, studentID, program)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	_ = s.cache.Set(ctx, key, records, s.cacheTTL)
	return records, nil
}

// ApprovedCodes resolves the approved set for planner operations. A non-empty
// override wins. Otherwise the transcript is consulted; when the feed fails or
// no program is known the planner proceeds with an empty set.
func (s *TranscriptService) ApprovedCodes(ctx context.Context, studentID, program string, override interface{}) coursecode.Set {
	if parsed := coursecode.ParseApproved(override); len(parsed) > 0 {
		return parsed
	}
	if strings.TrimSpace(program) == "" {
		return coursecode.Set{}
	}

	records, err := s.History(ctx, studentID, program)
	if err != nil {
		s.logger.Warn("transcript unavailable, continuing without approved courses",
			zap.String("student_id", studentID),
			zap.String("program", program),
			zap.Error(err),
		)
		return coursecode.Set{}
	}
	return ApprovedFromHistory(records)
}

// ApprovedFromHistory collects the keys of approved, non-excluded records.
func ApprovedFromHistory(records []models.HistoryRecord) coursecode.Set {
	approved := coursecode.Set{}
	for _, record := range records {
		if record.Status == models.HistoryApproved && !record.Excluded {
			approved.Add(record.Course)
		}
	}
	return approved
}
