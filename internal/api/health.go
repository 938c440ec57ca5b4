package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker reports whether one dependency is reachable.
type Checker func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Checker
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	services := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = "error: " + err.Error()
			status = "degraded"
			continue
		}
		services[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"message":  "Geraldine API está funcionando",
		"services": services,
	})
}

// Index describes the service and its single conversation endpoint.
func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Geraldine API",
		"version":     "2.0",
		"description": "API unificada para conversar con Geraldine, asistente de RepliKers",
		"status":      "online",
		"main_endpoint": gin.H{
			"path":    "/conversation",
			"methods": []string{"GET", "POST"},
			"usage": gin.H{
				"GET_history": "?thread_id=...&action=history",
				"GET_export":  "?thread_id=...&action=export",
				"POST_text":   "JSON: {'thread_id': '...', 'message': '...'}",
				"POST_file":   "Form-data: thread_id, message, file (PDF/PNG/JPG)",
				"POST_voice":  "Form-data: thread_id, audio",
			},
		},
		"health": gin.H{"path": "/health", "method": "GET"},
	})
}
