package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
)

// AuthHandler exposes the caller's own session. Tokens are issued by the
// resident portal; this service only verifies them.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

//
// GET /v1/auth/me
//

func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, NewIdentityResponse(id))
}
