package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TenantHeader = "X-School-ID"
	TenantKey    = "tenant_school_id"
)

// TenantMiddleware scopes the request to the school named by X-School-ID.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		schoolIDStr := c.GetHeader(TenantHeader)
		if schoolIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "School ID required"})
			c.Abort()
			return
		}

		schoolID, err := uuid.Parse(schoolIDStr)
		if err != nil || schoolID == uuid.Nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid school ID"})
			c.Abort()
			return
		}

		c.Set(TenantKey, schoolID.String())
		c.Next()
	}
}

// SchoolID returns the tenant set by TenantMiddleware.
func SchoolID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(c.GetString(TenantKey))
	return id
}
