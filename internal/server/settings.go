package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/config"
)

// handleGetSettings returns the assistant settings with the API key masked.
func (s *Server) handleGetSettings(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"settings":  s.settings.Settings().Masked(),
		"providers": config.ValidProviders(),
	})
}

// handleUpdateSettings persists a change made in the settings panel.
func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req config.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	settings, err := s.settings.Update(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"settings": settings.Masked()})
}
