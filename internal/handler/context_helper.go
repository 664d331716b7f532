package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-planner-api/internal/middleware"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
	"github.com/noah-isme/curriculum-planner-api/pkg/response"
)

// requesterID returns the student the request acts for. Admin tokens act for
// nobody in particular, which disables projection ownership checks. It writes
// the error response itself when no claims are present.
func requesterID(c *gin.Context) (string, bool) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	if claims.Role == models.RoleAdmin {
		return "", true
	}
	return claims.UserID, true
}

func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	return nil
}
