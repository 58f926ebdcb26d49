package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleSearch matches task titles across all projects for the sidebar
// search box.
func (s *Server) handleSearch(c *gin.Context) {
	results, err := s.store.SearchTasks(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"results": results})
}
