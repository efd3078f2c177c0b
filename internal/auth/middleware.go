package auth

import (
	"net/http"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// identityKey is the echo context key under which Protect stores the caller.
const identityKey = "identity"

// Identity is the trusted result of authentication: who is calling and with
// which role. It never carries the password hash.
type Identity struct {
	ID   uuid.UUID
	Role model.Role
}

// IsAdmin reports whether the identity has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// RequireRole is a pure capability check with no side effects.
func RequireRole(identity Identity, role model.Role) error {
	if identity.Role != role {
		return errors.ErrNotAuthorized
	}
	return nil
}

// Middleware returns the echo-jwt middleware that extracts the bearer token
// from the Authorization header and verifies its signature and expiry.
func Middleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "not authorized, token failed",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// Protect resolves the verified token's subject against the user store and
// stashes the caller identity for downstream authorization decisions. A
// subject whose account no longer exists is rejected. Must run after
// Middleware in the chain.
func Protect(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwtv5.Token)
			if !ok {
				return unauthorized("not authorized, no token")
			}
			claims, ok := token.Claims.(jwtv5.MapClaims)
			if !ok {
				return unauthorized("not authorized, token failed")
			}
			subject, _ := claims["user_id"].(string)
			userID, err := uuid.Parse(subject)
			if err != nil {
				return unauthorized("not authorized, token failed")
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				return unauthorized("user not found")
			}

			c.Set(identityKey, Identity{ID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}

// AdminOnly rejects non-admin callers. Must run after Protect.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := c.Get(identityKey).(Identity)
		if !ok || identity.Role != model.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "access denied, admin only",
				Code:  "FORBIDDEN",
			})
		}
		return next(c)
	}
}

// CurrentIdentity returns the identity stashed by Protect.
func CurrentIdentity(c echo.Context) Identity {
	identity, _ := c.Get(identityKey).(Identity)
	return identity
}

func unauthorized(message string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}
