package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	apperrors "treasury/internal/errors"
)

// JobKeyHeader carries the key that may trigger batch jobs over HTTP.
const JobKeyHeader = "X-API-Key"

var (
	errJobNotConfigured = &apperrors.AppError{Code: "JOB_TRIGGER_NOT_CONFIGURED", Message: "Job endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	errInvalidJobKey    = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// JobAuthMiddleware validates the X-API-Key header against keyHash, the
// bcrypt hash of the job key. An empty hash disables the endpoints.
func JobAuthMiddleware(keyHash string) gin.HandlerFunc {
	hash := []byte(keyHash)
	return func(c *gin.Context) {
		if keyHash == "" {
			abortWithError(c, errJobNotConfigured)
			return
		}
		key := c.GetHeader(JobKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
			abortWithError(c, errInvalidJobKey)
			return
		}
		c.Next()
	}
}
