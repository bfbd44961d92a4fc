// cmd/middleware/auth.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/internal/remote"
)

const activityCookie = "glide_user_activity"

// SessionToken extracts the caller's session token and stashes it on the
// request context so the remote client forwards it upstream. Lookup order:
// X-UserToken header, then the user-activity cookie. Authentication itself is
// the upstream service's problem; a missing token just means the upstream
// rejects the call and the classifier reports it.
func SessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-UserToken")
		if token == "" {
			if cookie, err := c.Cookie(activityCookie); err == nil {
				token = cookie
			}
		}
		if token != "" {
			c.Request = c.Request.WithContext(remote.WithToken(c.Request.Context(), token))
		}
		c.Next()
	}
}
