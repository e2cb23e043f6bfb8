// Package api exposes pipeline jobs over HTTP: submit a URL, watch
// progress, answer confirmation gates, and browse run history.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(manager *Manager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterJobRoutes(r, manager)
	RegisterHealthRoutes(r)
	return r
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
