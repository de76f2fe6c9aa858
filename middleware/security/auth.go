package security

import (
	"net/http"
	"strings"

	"AProject/tools/security"

	"github.com/gin-gonic/gin"
)

// BearerAuth verifies the internal-API JWT on notify routes. The REST tier
// signs its service token with the shared secret.
func BearerAuth(secret []byte) gin.HandlerFunc {
	opts := security.DefaultOptions(secret)
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing bearer token"})
			return
		}
		claims, err := security.Verify(opts, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}
		if sub, _ := claims.GetSubject(); sub != "" {
			c.Set("caller", sub)
		}
		c.Next()
	}
}
