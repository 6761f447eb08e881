package middlewares

import (
	"log"
	"net/http"
	"strings"

	"focusonmeal/models"
	"focusonmeal/services"
	"focusonmeal/utils"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "fom_session"
	sessionKey    = "session"
)

// SessionMiddleware loads the caller's session from the signed cookie, starting an
// anonymous one when the cookie is missing, invalid or points at nothing.
func SessionMiddleware(svc *services.SessionService, secret []byte, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := ""
		if raw, err := c.Cookie(SessionCookie); err == nil && raw != "" {
			if id, err := utils.ParseSessionJWT(raw, secret); err == nil {
				sid = id
			}
		}

		sess, created, err := svc.Resolve(c.Request.Context(), sid)
		if err != nil {
			log.Printf("session: resolve failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		if created {
			if err := IssueSessionCookie(c, sess.ID, secret, secure); err != nil {
				log.Printf("session: sign cookie: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
				return
			}
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireLogin rejects requests whose session carries no backend token.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).LoggedIn() {
			if WantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
				return
			}
			c.Redirect(http.StatusSeeOther, "/member/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}
	return nil
}

// ExpireSessionCookie tells the browser to drop the session cookie.
func ExpireSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// WantsJSON is true when the client prefers JSON over HTML.
func WantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, gin.MIMEJSON) && !strings.Contains(accept, gin.MIMEHTML)
}

// IssueSessionCookie signs sessionID into the session cookie.
func IssueSessionCookie(c *gin.Context, sessionID string, secret []byte, secure bool) error {
	tok, err := utils.GenerateSessionJWT(sessionID, secret)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, tok, int(utils.SessionTTL().Seconds()), "/", "", secure, true)
	return nil
}
