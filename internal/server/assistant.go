package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type messageRequest struct {
	Message string `json:"message"`
}

// handleListMessages returns the chat so far.
func (s *Server) handleListMessages(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"messages": s.assistant.Messages()})
}

// handleSendMessage relays a question to the assistant. Provider failures
// come back as a warning reply with status 200; the chat stays usable.
func (s *Server) handleSendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	reply, err := s.assistant.Send(c.Request.Context(), req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"reply": reply})
}

// handleResetMessages starts a new conversation.
func (s *Server) handleResetMessages(c *gin.Context) {
	s.assistant.Reset()
	respondSuccess(c, http.StatusOK, gin.H{"messages": s.assistant.Messages()})
}
