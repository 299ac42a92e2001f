package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/skintriage/internal/gemini"
)

const statusCheckTimeout = 15 * time.Second

func (s *Server) aiStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statusCheckTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gemini.CheckStatus(ctx, s.Generator, s.Selector))
}

func (s *Server) aiModels(c *gin.Context) {
	ids := s.Selector.IDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"availableModels": ids,
		"aiEnabled":       s.aiEnabled(),
		"totalModels":     len(ids),
	})
}
