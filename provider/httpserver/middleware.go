package httpserver

import (
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"github.com/gin-gonic/gin"
)

const ctxLoggerKey = "checador_request_logger"

// RequestLogMiddleware stamps every request with a trace ID, logs its
// outcome, and stores the request-scoped logger in the gin context so
// handlers can log with the same trace ID via RequestLogger.
func RequestLogMiddleware(serverName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, logger := log.NewRequestContext(c.Request.Context(), serverName)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ctxLoggerKey, logger)

		c.Next()

		logger.Info("request completed", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
	}
}

// RequestLogger returns the request-scoped logger stashed by
// RequestLogMiddleware, or a fresh default logger if none is set (e.g. a
// unit test that calls a handler without going through the middleware).
func RequestLogger(c *gin.Context) *log.Logger {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if logger, ok := v.(*log.Logger); ok {
			return logger
		}
	}
	return log.New("http")
}

// UseRequestLogging registers the structured request-logging middleware.
func (s *Server) UseRequestLogging() {
	s.AddMiddleware(RequestLogMiddleware(s.Config.GetOption("serverName", ServerDefaultName)))
}
