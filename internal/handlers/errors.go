package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/importer"
	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/middleware"
	"github.com/school-system/exam-results/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoGradingScale):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, grading.ErrWeightageExceeded),
		errors.Is(err, grading.ErrInvalidWeightage),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrNoHeader),
		errors.Is(err, importer.ErrEmptySheet),
		errors.Is(err, importer.ErrInvalidSheet):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logging.FromContext(c.Request.Context()).Error("request error", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, value, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseIDs(c *gin.Context, values []string, label string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, ok := parseID(c, v, label)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// actor identifies the caller for the audit trail.
func actor(c *gin.Context) services.Actor {
	return services.Actor{Name: c.GetHeader("X-Actor"), IP: c.ClientIP()}
}

func schoolID(c *gin.Context) uuid.UUID {
	return middleware.SchoolID(c)
}
