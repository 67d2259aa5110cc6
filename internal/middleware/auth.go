package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/arnif/event-registry/internal/auth"
	"github.com/arnif/event-registry/internal/model"
	"github.com/arnif/event-registry/internal/pipeline"
)

// PrincipalStore resolves a verified token subject to a full user record.
// Not-found is (nil, nil); errors are transport-level.
type PrincipalStore interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// resolvePrincipal parses the bearer token, verifies it and loads the
// acting user. A token that verifies but whose subject no longer exists
// is treated as invalid, not as an anonymous request.
func resolvePrincipal(c echo.Context, secret string, users PrincipalStore) (*model.User, error) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, auth.ErrInvalidToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	id, err := auth.ParseToken(secret, raw)
	if err != nil {
		return nil, err
	}
	u, err := users.FindByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

// RequireAuth is the required authentication guard: a missing or invalid
// bearer token terminates the request with 401. On success the principal
// is attached to the pipeline context for downstream stages.
func RequireAuth(secret string, users PrincipalStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := resolvePrincipal(c, secret, users)
			if err == auth.ErrInvalidToken {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if err != nil {
				return err
			}
			pipeline.From(c).Principal = u
			return next(c)
		}
	}
}

// OptionalAuth attaches a principal when a valid token is supplied and
// continues anonymously otherwise. Used for routes that personalize
// output but do not require login.
func OptionalAuth(secret string, users PrincipalStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := resolvePrincipal(c, secret, users)
			if err != nil && err != auth.ErrInvalidToken {
				return err
			}
			if u != nil {
				pipeline.From(c).Principal = u
			}
			return next(c)
		}
	}
}
