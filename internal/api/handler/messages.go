package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetConversation returns the caller's direct-message history with another
// participant in a lobby, newest first.
func (h *Handler) GetConversation(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	other := c.Query("with")
	if other == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'with' participant"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	code := strings.ToUpper(c.Param("code"))
	messages, err := h.Storage.GetConversation(code, profileID, other, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

type markReadRequest struct {
	With string `json:"with" binding:"required"`
}

// MarkConversationRead flags everything the other participant sent the caller
// in this lobby as read.
func (h *Handler) MarkConversationRead(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := strings.ToUpper(c.Param("code"))
	if err := h.Storage.MarkConversationRead(code, profileID, req.With); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark conversation read"})
		return
	}
	c.Status(http.StatusNoContent)
}
