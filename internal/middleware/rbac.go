package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/response"
)

// RequireRole lets through sessions holding one of roles. It must run after
// RequireSession.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
