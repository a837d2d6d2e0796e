package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
)

const userContextKey = "auth.user"

// Middleware authenticates the bearer token and loads the caller.
func Middleware(tokens *TokenManager, repo users.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			apperr.Respond(c, apperr.Unauthorized("Not authorized, no token"))
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			apperr.Respond(c, apperr.Unauthorized("Not authorized, token failed"))
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			apperr.Respond(c, apperr.Unauthorized("Not authorized, token failed"))
			return
		}

		user, err := repo.GetByID(c.Request.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			apperr.Respond(c, apperr.Unauthorized("Not authorized, user not found"))
			return
		}
		if err != nil {
			apperr.Respond(c, apperr.Internal("Failed to load user", err))
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRole must run after Middleware.
func RequireRole(role users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthorized("Not authorized"))
			return
		}
		if user.UserType != role {
			apperr.Respond(c, apperr.Forbidden("Access denied: "+string(role)+" role required"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*users.User)
	return user, ok
}
