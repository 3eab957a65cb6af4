package util

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/errors"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	c.JSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// EngineAPIError translates a recommendation engine error into an API error
func EngineAPIError(err error) *errors.APIError {
	switch {
	case stderrors.Is(err, recommend.ErrPreconditionUnmet):
		return errors.NotEligible("review a few more albums to unlock personalized picks")
	case stderrors.Is(err, recommend.ErrNoCandidates):
		return errors.NoCandidates("no albums left to recommend right now")
	case stderrors.Is(err, recommend.ErrInvalidInput):
		return errors.ValidationError("", err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("recommendation request")
	default:
		return errors.InternalError("failed to compute recommendations").WithDetails(err.Error())
	}
}

// RespondEngineError writes the HTTP answer for an engine error. Ineligible
// users and empty catalogs are ordinary 200 answers the client renders as
// empty states; everything else is an error response.
func RespondEngineError(c *gin.Context, err error) {
	apiErr := EngineAPIError(err)
	switch apiErr.Code {
	case errors.ErrNotEligible:
		c.JSON(apiErr.Status, gin.H{
			"eligible": false,
			"code":     apiErr.Code,
			"message":  apiErr.Message,
		})
	case errors.ErrNoCandidates:
		c.JSON(apiErr.Status, gin.H{
			"albums":  []interface{}{},
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	default:
		RespondWithAPIError(c, apiErr)
	}
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "bad request"
	}
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	RespondWithAPIError(c, errors.InternalError(message))
}

// RespondValidationError sends a 400 response naming the offending field
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

// RespondNotEligible answers a personalized request from a user whose
// history is below the review threshold, with their progress toward it
func RespondNotEligible(c *gin.Context, reviewCount int64, required int) {
	apiErr := errors.NotEligible(fmt.Sprintf("review %d more albums to unlock personalized picks", int64(required)-reviewCount))
	c.JSON(apiErr.Status, gin.H{
		"eligible":         false,
		"code":             apiErr.Code,
		"message":          apiErr.Message,
		"review_count":     reviewCount,
		"required_reviews": required,
	})
}
