package middleware

import (
	"context"
	"strings"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// Authenticator resolves a bearer token to its active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired rejects requests without a valid bearer token and stores
// the resolved user in the context.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperr.ErrInvalidToken)
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindAuthInvalid {
				c.Header("WWW-Authenticate", "Bearer")
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUser returns the authenticated user, nil outside AuthRequired.
func GetUser(c *gin.Context) *models.User {
	if u, exists := c.Get(ContextUser); exists {
		return u.(*models.User)
	}
	return nil
}
