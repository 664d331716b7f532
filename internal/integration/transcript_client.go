package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// TranscriptClient fetches the academic history of a student.
type TranscriptClient struct {
	feed *feedClient
}

// NewTranscriptClient constructs a TranscriptClient.
func NewTranscriptClient(cfg ClientConfig, logger *zap.Logger, recorder Recorder) *TranscriptClient {
	return &TranscriptClient{feed: newFeedClient("transcript", cfg, logger, recorder)}
}

// FetchHistory returns the transcript records of studentID within program.
func (c *TranscriptClient) FetchHistory(ctx context.Context, studentID, program string) ([]models.HistoryRecord, error) {
	resp, err := c.feed.get(ctx, "/avance.php", query("rut", studentID, "codcarrera", program), nil)
	if err != nil {
		return nil, err
	}
	if msg, failed := errorMessage(resp.Body); failed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, msg)
	}
	switch {
	case resp.Status == http.StatusNotFound:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic history not found")
	case resp.Status != http.StatusOK:
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("transcript feed returned status %d", resp.Status))
	}

	items, ok := resp.Body.([]interface{})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "unexpected transcript payload")
	}
	records := make([]models.HistoryRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		record := models.HistoryRecord{
			Course:          stringField(obj, "course"),
			Period:          stringField(obj, "period"),
			NRC:             stringField(obj, "nrc"),
			InscriptionType: stringField(obj, "inscriptionType"),
			RawStatus:       stringField(obj, "status"),
			Excluded:        boolField(obj, "excluded"),
		}
		if record.Course == "" {
			continue
		}
		record.Status = MapHistoryStatus(record.RawStatus)
		records = append(records, record)
	}
	return records, nil
}

// MapHistoryStatus maps the feed's status vocabulary.
func MapHistoryStatus(raw string) models.HistoryStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APROBADO":
		return models.HistoryApproved
	case "REPROBADO":
		return models.HistoryFailed
	case "INSCRITO":
		return models.HistoryInProgress
	}
	return models.HistoryOther
}

func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolField(obj map[string]interface{}, key string) bool {
	switch v := obj[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}
