package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the gateway callbacks. They carry no user
// credentials; each gateway authenticates its own deliveries.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	g.POST("/webhooks/:kind", h.Receive)

	if h.simulatorEnabled {
		checkout := g.Group("/payments/simulator")
		{
			checkout.GET("/checkout", h.CheckoutPage)
			checkout.POST("/checkout", h.Checkout)
		}
	}
}
