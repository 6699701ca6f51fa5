package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/skinoai/internal/config"
	"github.com/example/skinoai/internal/usecase"
)

type analyzeRequest struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc *usecase.AnalysisUseCase, metricsHandler http.Handler, maxBodySize int64) {
	if maxBodySize <= 0 {
		maxBodySize = config.DefaultMaxBodyBytes
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": config.AppName, "version": config.AppVersion})
	})

	router.GET("/backend/health", func(c *gin.Context) {
		endpoint, ok := uc.CheckBackend(c.Request.Context())
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"healthy": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"healthy": true, "endpoint": endpoint})
	})

	router.POST("/analyze", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		view, err := uc.Analyze(c.Request.Context(), req.Image, req.Text)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, usecase.ErrNoImage) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": usecase.FailureReason(err)})
			return
		}

		c.JSON(http.StatusOK, view)
	})

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
