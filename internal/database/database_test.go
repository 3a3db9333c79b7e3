package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/school-system/exam-results/internal/models"
)

func TestMaskPassword(t *testing.T) {
	dsn := "host=localhost user=postgres password=secret dbname=results"
	masked := maskPassword(dsn)
	assert.NotContains(t, masked, "secret")
	assert.True(t, strings.HasPrefix(masked, dsn[:20]))
	assert.Equal(t, "***", maskPassword("short"))
}

func TestNotFound(t *testing.T) {
	id := uuid.New()

	err := notFound(gorm.ErrRecordNotFound, "exam", id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), id.String())

	cause := errors.New("connection reset")
	err = notFound(cause, "student", id)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
