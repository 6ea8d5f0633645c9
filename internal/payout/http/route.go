package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, staffMiddleware gin.HandlerFunc) {
	group := g.Group("/payouts")

	// === Staff Routes ===
	group.Use(authMiddleware, staffMiddleware)
	{
		group.POST("/run", h.Run)
	}
}
