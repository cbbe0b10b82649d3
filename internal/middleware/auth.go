package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/pkg/auth"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

const ContextActor = "actor"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the JWT token and stores the actor in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "invalid authorization format"})
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			httputil.RespondWithError(c, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "invalid token", Err: err})
			return
		}

		c.Set(ContextActor, claims.Actor())
		c.Next()
	}
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(ContextActor)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
