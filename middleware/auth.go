package middleware

import (
	"net/http"
	"strings"

	"MeetChat/tools/errs"
	"MeetChat/tools/security"

	"github.com/gin-gonic/gin"
)

// ctxUserID is the gin context key the auth middleware settles.
const ctxUserID = "userID"

// Auth verifies the bearer token and pins the authenticated user id into the
// request context. Everything behind it can trust UserID(c).
func Auth(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		sub, err := security.VerifySubject(opts, token)
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    errs.ErrFatalAuth.Code,
				"message": errs.ErrFatalAuth.Msg,
			})
			return
		}
		c.Set(ctxUserID, sub)
		c.Next()
	}
}

// UserID returns the id settled by Auth; empty on unauthenticated routes.
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxUserID)
	s, _ := v.(string)
	return s
}
