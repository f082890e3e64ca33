package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type lobbyRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Theme       string   `json:"theme"`
	MaxPlayers  int      `json:"max_players"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`

	HostUsesCreatorProfile  bool   `json:"host_uses_creator_profile"`
	CustomHostName          string `json:"custom_host_name"`
	CustomHostAvatar        string `json:"custom_host_avatar"`
	AdditionalHostKnowledge string `json:"additional_host_knowledge"`
}

// CreateLobby creates a custom lobby with a freshly generated join code.
func (h *Handler) CreateLobby(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req lobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lobby := &models.CustomLobby{
		Name:                    req.Name,
		Description:             req.Description,
		Theme:                   req.Theme,
		MaxPlayers:              req.MaxPlayers,
		CreatedBy:               profileID,
		IsPublic:                req.IsPublic,
		Tags:                    pq.StringArray(req.Tags),
		HostUsesCreatorProfile:  req.HostUsesCreatorProfile,
		CustomHostName:          req.CustomHostName,
		CustomHostAvatar:        req.CustomHostAvatar,
		AdditionalHostKnowledge: req.AdditionalHostKnowledge,
	}

	// Join codes collide rarely; mint a new one and retry on a collision,
	// fail fast on anything else.
	for attempt := 0; attempt < 5; attempt++ {
		lobby.LobbyCode = models.NewLobbyCode()
		err = h.Storage.CreateLobby(lobby)
		if err == nil {
			c.JSON(http.StatusOK, lobby)
			return
		}
		if !errors.Is(err, storage.ErrLobbyCodeTaken) {
			break
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lobby"})
}

// GetLobby looks a custom lobby up by its join code.
func (h *Handler) GetLobby(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	lobby, err := h.Storage.GetLobbyByCode(code)
	if err == storage.ErrLobbyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load lobby"})
		return
	}
	c.JSON(http.StatusOK, lobby)
}

// ListLobbies returns public lobbies, newest first, with optional search and
// paging.
func (h *Handler) ListLobbies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	lobbies, err := h.Storage.ListPublicLobbies(c.Query("search"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list lobbies"})
		return
	}
	c.JSON(http.StatusOK, lobbies)
}

// UpdateLobby updates a custom lobby; only its creator may, and the join code
// is preserved.
func (h *Handler) UpdateLobby(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	code := strings.ToUpper(c.Param("code"))
	lobby, err := h.Storage.GetLobbyByCode(code)
	if err == storage.ErrLobbyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load lobby"})
		return
	}
	if lobby.CreatedBy != profileID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the creator can update a lobby"})
		return
	}

	var req lobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lobby.Name = req.Name
	lobby.Description = req.Description
	lobby.Theme = req.Theme
	lobby.MaxPlayers = req.MaxPlayers
	lobby.IsPublic = req.IsPublic
	lobby.Tags = pq.StringArray(req.Tags)
	lobby.HostUsesCreatorProfile = req.HostUsesCreatorProfile
	lobby.CustomHostName = req.CustomHostName
	lobby.CustomHostAvatar = req.CustomHostAvatar
	lobby.AdditionalHostKnowledge = req.AdditionalHostKnowledge

	if err := h.Storage.SaveLobby(lobby); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update lobby"})
		return
	}
	c.JSON(http.StatusOK, lobby)
}

// DeleteLobby removes a custom lobby; only its creator may.
func (h *Handler) DeleteLobby(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	code := strings.ToUpper(c.Param("code"))
	err = h.Storage.DeleteLobby(code, profileID)
	if err == storage.ErrLobbyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete lobby"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": code})
}
