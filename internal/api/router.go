package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

type RouterConfig struct {
	ConversationHandler *ConversationHandler
	HealthHandler       *HealthHandler
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORS(cfg.AllowOrigins))

	r.GET("/", Index)
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	if h := cfg.ConversationHandler; h != nil {
		for _, path := range []string{"/conversation", "/api/conversation"} {
			r.GET(path, h.Get)
			r.POST(path, h.Post)
		}
	}
	return r
}

// CORS allows every origin when origins is empty or contains "*".
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		evt := logx.Info()
		switch {
		case status >= 500:
			evt = logx.Error()
		case status >= 400:
			evt = logx.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("HTTP request")
	}
}
