package middleware

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/logger"
	"github.com/charlesng35/promptgallery/pkg/response"
)

// Recovery answers a panicking handler with a generic 500 and logs the panic
// value with its stack under the request ID.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithModule("http").Error("handler panicked",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(CtxRequestIDKey)),
			zap.Any("panic", recovered),
			zap.StackSkip("stack", 2),
		)
		response.Error(c, errors.ErrInternalServer)
	})
}

// NotFoundHandler is the NoRoute handler. The body echoes the unmatched path.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithDetail("path", c.Request.URL.Path))
}
