package httpgin

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Request-ID",
			callerHeader,
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Idempotency-Key",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

// LoggingMiddleware writes one access log record per request under the
// "http" group. Path ids are logged as separate attributes next to the route
// template.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		reqID, _ := c.Get("request_id")

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("ip", c.ClientIP()),
			slog.String("ua", c.Request.UserAgent()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		if caller := c.GetHeader(callerHeader); caller != "" {
			attrs = append(attrs, slog.String("caller", caller))
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, slog.String("id", id))
		}
		if ticket := c.Param("ticket"); ticket != "" {
			attrs = append(attrs, slog.String("ticket", ticket))
		}

		switch {
		case len(c.Errors) > 0:
			attrs = append(attrs, slog.String("error", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
		case c.Writer.Status() >= 500:
			logger.Error("http", slog.Group("http", attrs...))
		default:
			logger.Info("http", slog.Group("http", attrs...))
		}
	}
}
