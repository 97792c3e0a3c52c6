package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/session"
	"github.com/torao/kazzla/internal/utils"
)

// AttachSession restores the session of every request. Requests without a valid token get an
// unbound session; the services decide whether that is enough.
func AttachSession(jwtMgr managers.JWTMgr, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(utils.SessionKey.String(), session.FromRequest(c, jwtMgr, secureCookie))
		c.Next()
	}
}

// Session returns the session attached by AttachSession.
func Session(c *gin.Context) *session.CookieSession {
	value, exists := c.Get(utils.SessionKey.String())
	if !exists {
		return nil
	}
	sess, _ := value.(*session.CookieSession)
	return sess
}
