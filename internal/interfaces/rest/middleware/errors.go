package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/apperror"
	"go-dashboard-hub/internal/interfaces/rest/response"
)

const internalErrorMessage = "Internal server error"

// Errors turns the last error attached with c.Error into a JSON failure.
func Errors(production bool, log logger.Logger) gin.HandlerFunc {
	log = log.WithField("middleware", "errors")

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)
		message := appErr.Message
		if appErr.Code == apperror.CodeInternal {
			log.Errorf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
			if production {
				message = internalErrorMessage
			}
		}
		response.Fail(c, appErr.Status(), message, nil)
	}
}

// Recovery maps panics to a 500 and keeps the server running.
func Recovery(production bool, log logger.Logger) gin.HandlerFunc {
	log = log.WithField("middleware", "recovery")

	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Errorf("Recovered panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)

		message := internalErrorMessage
		if !production {
			message = fmt.Sprint(recovered)
		}
		response.Fail(c, http.StatusInternalServerError, message, nil)
	})
}

// NotFound answers unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Route not found", gin.H{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	}
}
