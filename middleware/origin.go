package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin gates the websocket upgrade path. Adjust to your own domain /
// cookie logic; the default allows same-origin and empty-origin clients.
func Origin(allowed ...string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allow[a] = struct{}{}
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.Request.URL.Path == "/ws" {
			origin := c.GetHeader("Origin")
			if origin != "" && len(allow) > 0 {
				if _, ok := allow[origin]; !ok {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
			}
		}
		c.Next()
	}
}
