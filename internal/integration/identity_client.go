package integration

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// IdentityClient relays credentials to the institutional login service.
type IdentityClient struct {
	feed *feedClient
}

// NewIdentityClient constructs an IdentityClient.
func NewIdentityClient(cfg ClientConfig, logger *zap.Logger, recorder Recorder) *IdentityClient {
	return &IdentityClient{feed: newFeedClient("identity", cfg, logger, recorder)}
}

// Login returns the raw profile for valid credentials.
func (c *IdentityClient) Login(ctx context.Context, username, password string) (map[string]interface{}, error) {
	resp, err := c.feed.get(ctx, "/login.php", query("email", username, "password", password), nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden {
		return nil, appErrors.ErrInvalidCredentials
	}
	if resp.Status != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("identity feed returned status %d", resp.Status))
	}
	if msg, failed := errorMessage(resp.Body); failed {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, msg)
	}
	profile, ok := resp.Body.(map[string]interface{})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "unexpected identity payload")
	}
	return profile, nil
}
