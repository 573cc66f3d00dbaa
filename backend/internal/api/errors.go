package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "digital-twin/backend/pkg/errors"
)

// respondError maps err onto a status code. missingStatus is used for
// reference errors, which mean "not found" on reads but "unprocessable"
// when the missing id was named inside a request body.
func (h *handlers) respondError(c *gin.Context, err error, missingStatus int, msg string) {
	if rlErr, ok := apperrors.AsRateLimitExceeded(err); ok {
		c.Header("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message":    "Rate limit exceeded. Try again later.",
			"retryAfter": rlErr.RetryAfterSeconds,
		})
		return
	}

	switch {
	case apperrors.IsErrorType(err, apperrors.ErrorTypeReference):
		c.JSON(missingStatus, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
