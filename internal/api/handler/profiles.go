package handler

import (
	"net/http"

	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type profileRequest struct {
	Username            string   `json:"username" binding:"required"`
	SelectedAvatarModel string   `json:"selected_avatar_model"`
	Bio                 string   `json:"bio"`
	Interests           []string `json:"interests"`
	AIPersonality       string   `json:"ai_personality"`
}

// CreateProfile creates (or updates) the caller's profile. The profile ID is
// the authenticated participant ID, so a participant owns exactly one
// profile.
func (h *Handler) CreateProfile(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &models.Profile{
		ID:                  profileID,
		Username:            req.Username,
		SelectedAvatarModel: req.SelectedAvatarModel,
		Bio:                 req.Bio,
		Interests:           pq.StringArray(req.Interests),
		AIPersonality:       req.AIPersonality,
	}
	if err := h.Storage.SaveProfile(profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}
	// Refresh the cached copy so connected sessions stop serving the old one.
	h.Hub.Directory.Put(profile)

	c.JSON(http.StatusOK, profile)
}

// GetProfile returns a profile's public metadata by ID.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Storage.GetProfileByID(c.Param("id"))
	if err == storage.ErrProfileNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetSavedAvatarState returns the caller's own stored avatar row for a room,
// so a client switching rooms can restore its last transform.
func (h *Handler) GetSavedAvatarState(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	state, err := h.Storage.GetAvatarState(profileID, c.Param("room"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load avatar state"})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No saved state for room"})
		return
	}
	c.JSON(http.StatusOK, state)
}
