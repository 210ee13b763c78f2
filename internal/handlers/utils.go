package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getCorrelationID extracts the correlation ID set by the middleware
func getCorrelationID(c *gin.Context) string {
	if id, exists := c.Get("correlation_id"); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return uuid.New().String()
}

// errorResponse builds a standardized error body
func errorResponse(code, message, correlationID string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":           code,
			"message":        message,
			"correlation_id": correlationID,
		},
	}
}

// parseUUIDParam parses a UUID path parameter
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}
