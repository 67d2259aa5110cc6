package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arnif/event-registry/internal/pipeline"
)

// Owned is implemented by resources that carry a creator and therefore
// participate in the ownership guard.
type Owned interface {
	OwnerID() int64
}

// RequireAdmin enforces that the authenticated principal has admin
// rights. It assumes RequireAuth ran earlier on the route.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := pipeline.From(c)
			if rc.Principal == nil || !rc.Principal.Admin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireOwner allows the request to proceed iff the principal is an
// admin or created the resolved resource. It must run after the
// existence guard and the required authentication guard. The rejection
// message is opaque so non-owners learn nothing about the resource.
func RequireOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := pipeline.From(c)
			owned, ok := rc.Resource.(Owned)
			if !ok || rc.Principal == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if rc.Principal.Admin || rc.Principal.ID == owned.OwnerID() {
				return next(c)
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
}
