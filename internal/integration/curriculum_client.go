package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// RawCourse is one heterogeneous catalog record as published by the feed.
type RawCourse map[string]interface{}

// CurriculumClient fetches program catalogs.
type CurriculumClient struct {
	feed *feedClient
}

// NewCurriculumClient constructs a CurriculumClient.
func NewCurriculumClient(cfg ClientConfig, logger *zap.Logger, recorder Recorder) *CurriculumClient {
	return &CurriculumClient{feed: newFeedClient("curriculum", cfg, logger, recorder)}
}

// FetchCatalog returns the raw records of a program catalog. The feed answers
// with a bare array or an object wrapping it under "malla" or "data".
func (c *CurriculumClient) FetchCatalog(ctx context.Context, program, catalog string) ([]RawCourse, error) {
	headers := map[string]string{}
	if c.feed.cfg.APIKey != "" {
		headers["X-HAWAII-AUTH"] = c.feed.cfg.APIKey
	}
	resp, err := c.feed.get(ctx, "/mallas", url.QueryEscape(program+"-"+catalog), headers)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("curriculum feed returned status %d", resp.Status))
	}
	if msg, failed := errorMessage(resp.Body); failed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, msg)
	}

	items, ok := catalogItems(resp.Body)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "unexpected curriculum payload")
	}
	records := make([]RawCourse, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, RawCourse(obj))
		}
	}
	return records, nil
}

func catalogItems(body interface{}) ([]interface{}, bool) {
	switch v := body.(type) {
	case []interface{}:
		return v, true
	case map[string]interface{}:
		for _, key := range []string{"malla", "data"} {
			if items, ok := v[key].([]interface{}); ok {
				return items, true
			}
		}
	}
	return nil, false
}
