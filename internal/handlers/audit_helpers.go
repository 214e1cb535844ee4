package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userRefFromContext picks up the caller identity forwarded by the
// gateway, when present. There is no local auth layer.
func userRefFromContext(c *gin.Context) *string {
	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}
	return nil
}
