package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/pkg/auth"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

const (
	ContextActorID   = "actor_id"
	ContextActorRole = "actor_role"
)

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and sets the acting identity in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.Unauthorized(errors.New("missing authorization header")))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, apperrors.Unauthorized(errors.New("invalid authorization format")))
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, apperrors.Unauthorized(err))
			return
		}
		id, err := claims.ActorID()
		if err != nil {
			abort(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextActorID, id)
		c.Set(ContextActorRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := Actor(c)
		if !ok {
			abort(c, apperrors.Unauthorized(errors.New("no acting identity")))
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		abort(c, apperrors.Forbidden(fmt.Sprintf("role %s is not allowed here", role)))
	}
}

// Actor returns the identity set by Authenticate.
func Actor(c *gin.Context) (int64, model.Role, bool) {
	id, ok := c.Get(ContextActorID)
	if !ok {
		return 0, "", false
	}
	role, _ := c.Get(ContextActorRole)
	actorID, _ := id.(int64)
	actorRole, _ := role.(model.Role)
	return actorID, actorRole, actorID > 0
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
