package auth

import "github.com/gin-gonic/gin"

// GetIdentity returns the authenticated identity stored by AuthRequired.
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id, true
		}
	}
	return Identity{}, false
}

// SetIdentity stores id on the request context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
