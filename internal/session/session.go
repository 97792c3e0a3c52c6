// Package session binds a request to at most one signed-in account.
//
// The account id travels in a signed JWT, set as an HttpOnly cookie and also accepted as a Bearer token
// for non-browser clients. The token also carries the session epoch of the account; raising the epoch
// in the database revokes every token issued before.
package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/utils"
)

// CookieName is the name of the session cookie.
const CookieName = "kazzla_session"

// Session is the per-request view of the signed-in account.
type Session interface {
	// AccountID returns the bound account id, if any.
	AccountID() (string, bool)
	// Epoch is the session epoch the token was issued under, compared against the account on use.
	Epoch() int64
	// Bind replaces the bound account.
	Bind(accountID string, epoch int64) error
	// Reset clears the bound account.
	Reset()
	// RemoteAddress is the client address recorded in the event log.
	RemoteAddress() string
}

// CookieSession is the Session of one gin request.
type CookieSession struct {
	ctx       *gin.Context
	jwtMgr    managers.JWTMgr
	secure    bool
	accountID string
	epoch     int64
	bound     bool
	token     string
}

// FromRequest restores the session from the cookie or the Authorization header.
// An invalid or expired token yields an unbound session.
func FromRequest(c *gin.Context, jwtMgr managers.JWTMgr, secure bool) *CookieSession {
	s := &CookieSession{ctx: c, jwtMgr: jwtMgr, secure: secure}

	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		if cookie, err := c.Cookie(CookieName); err == nil {
			tokenString = cookie
		}
	}
	if tokenString == "" {
		return s
	}

	claims, err := jwtMgr.ValidateJWT(tokenString)
	if err != nil {
		utils.LogMessageWithFieldsAndError(c, "debug", "Ignoring invalid session token", err)
		return s
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return s
	}
	epoch, ok := managers.SessionEpoch(claims)
	if !ok {
		return s
	}

	s.accountID = subject
	s.epoch = epoch
	s.bound = true
	s.token = tokenString
	return s
}

func (s *CookieSession) AccountID() (string, bool) {
	return s.accountID, s.bound
}

func (s *CookieSession) Epoch() int64 {
	return s.epoch
}

// Bind issues a fresh session token for accountID under epoch and sets the cookie.
func (s *CookieSession) Bind(accountID string, epoch int64) error {
	token, err := s.jwtMgr.GenerateJWT(s.jwtMgr.GenerateClaims(accountID, epoch))
	if err != nil {
		return err
	}

	s.accountID = accountID
	s.epoch = epoch
	s.bound = true
	s.token = token
	s.setCookie(token, int(s.jwtMgr.Lifetime().Seconds()))
	return nil
}

// Reset unbinds the session and expires the cookie. The token itself stays valid until the
// account's session epoch is raised.
func (s *CookieSession) Reset() {
	s.accountID = ""
	s.epoch = 0
	s.bound = false
	s.token = ""
	s.setCookie("", -1)
}

func (s *CookieSession) RemoteAddress() string {
	return s.ctx.ClientIP()
}

// Token is the current session token, empty when unbound.
func (s *CookieSession) Token() string {
	return s.token
}

func (s *CookieSession) setCookie(value string, maxAge int) {
	s.ctx.SetSameSite(http.SameSiteLaxMode)
	s.ctx.SetCookie(CookieName, value, maxAge, "/", "", s.secure, true)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
