package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtime-hub/internal/hub"
)

type PresenceHandler struct {
	Hub *hub.Hub
}

type presenceResponse struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

func (h *PresenceHandler) Get(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	conns := h.Hub.Registry().ConnectionsOf(userID)
	c.JSON(http.StatusOK, presenceResponse{
		UserID:      userID,
		Online:      len(conns) > 0,
		Connections: len(conns),
	})
}

type StatsHandler struct {
	Hub *hub.Hub
}

func (h *StatsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}
