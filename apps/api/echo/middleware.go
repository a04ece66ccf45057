package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core/access"
)

// requirePermission gates an endpoint on the capability policy. The claims
// roles are checked once here; handlers never compare roles themselves.
func requirePermission(res access.Resource, act access.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if access.Allow(claims.Roles, res, act) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
