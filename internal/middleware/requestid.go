// requestid.go tags every request with an identifier that flows through the
// structured request log, so a support ticket quoting an X-Request-ID can be
// matched to the exact log line.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is
	// stored for handlers and the logging middleware
	RequestIDKey = "request_id"
)

// RequestIDMiddleware ensures every request carries a unique identifier.
// An inbound X-Request-ID from the platform ingress is reused unchanged so the
// edge and the API log the same ID; bare requests get a fresh UUID. The ID is
// echoed in the response header and stored under RequestIDKey in the context.
//
// Register it before the logging middleware so every request log line carries
// the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
