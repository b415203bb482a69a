package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ChatSync/tools/errs"
	"ChatSync/tools/security"
)

// CtxUserID is the gin context key the auth middleware populates.
const CtxUserID = "userID"

// Auth validates the bearer token on REST routes and stashes the subject
// in the context. The WebSocket handshake does its own check pre-upgrade.
func Auth(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
			return
		}
		userID, err := security.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.AsCodeError(err))
			return
		}
		c.Set(CtxUserID, userID)
		c.Next()
	}
}

// UserID reads the authenticated subject set by Auth.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserID)
	s, _ := v.(string)
	return s
}
