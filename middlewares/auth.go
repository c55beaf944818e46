package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventhub/apperr"
	"eventhub/utils"
)

// UserIDKey is the gin context key holding the authenticated caller.
const UserIDKey = "userId"

// Authenticate accepts "Authorization: Bearer <token>" or the bare token and
// stores the token subject under UserIDKey.
func Authenticate(tm *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			raw = strings.TrimSpace(raw[7:])
		}
		if raw == "" {
			abortUnauthenticated(c)
			return
		}
		uid, err := tm.VerifyToken(raw)
		if err != nil || uid == "" {
			abortUnauthenticated(c)
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"message": "Not authorized.",
		"code":    apperr.CodeUnauthenticated,
	})
}
