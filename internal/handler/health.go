package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-hub/internal/hub"
)

// Version is set at build time with -ldflags "-X realtime-hub/internal/handler.Version=...".
var Version = "dev"

type HealthHandler struct {
	Hub *hub.Hub
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "running": h.Hub.Running(), "version": Version})
}
