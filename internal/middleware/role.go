package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that lets the request through only when
// the role stored by JWTAuth is one of roles.  Anything else gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
