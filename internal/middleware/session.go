package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

// ContextSessionKey is the gin context key storing the current session.
const ContextSessionKey = "currentSession"

type sessionReader interface {
	Current() *models.Session
}

// RequireSession rejects requests made while signed out or with an access
// token that has already expired, and stores a copy of the session in the
// context.
func RequireSession(sessions sessionReader) gin.HandlerFunc {
	return requireSession(sessions, time.Now)
}

func requireSession(sessions sessionReader, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Current()
		if session == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in first"))
			c.Abort()
			return
		}
		if session.Expired(now(), 0) {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session expired, sign in again"))
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
