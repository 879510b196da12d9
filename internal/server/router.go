// Package server assembles the gin router for the trust ledger daemon.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veritas-dev/trust-ledger/internal/api"
)

// New builds the HTTP router over the given handler.
func New(h *api.Handler) *gin.Engine {
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/", h.Root)

	veritas := r.Group("/veritas")
	{
		veritas.POST("/log", h.Log)
		veritas.GET("/chain", h.Chain)
		veritas.GET("/verify", h.Verify)
	}

	umbrella := r.Group("/umbrella")
	{
		umbrella.POST("/encrypt", h.Encrypt)
		umbrella.POST("/seal", h.Seal)
		umbrella.POST("/decrypt", h.Decrypt)
		umbrella.POST("/keys", h.ProvisionKey)
		umbrella.DELETE("/keys/:id", h.ShredKey)
	}

	return r
}
