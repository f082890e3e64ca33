package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type offlineRequest struct {
	ProfileID string `json:"profile_id" binding:"required"`
	RoomID    string `json:"room_id" binding:"required"`
}

// MarkOffline is the unload-beacon endpoint. Browsers fire it best-effort via
// navigator.sendBeacon when the page closes, so it cannot carry auth headers
// and delivery is not guaranteed; the stale-row sweeper backstops it. It
// flips the row to its stand-in form rather than deleting it; the digital
// twin stays in the room.
func (h *Handler) MarkOffline(c *gin.Context) {
	var req offlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Storage.MarkAvatarOffline(req.ProfileID, req.RoomID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark offline"})
		return
	}
	c.Status(http.StatusNoContent)
}
