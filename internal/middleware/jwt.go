package middleware // middleware holds the Echo middleware shared by all route groups

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the caller's user id (uint64) and role into the request context.
// The secret must match the one used by the identity service when issuing
// tokens.  Handlers read the values back with UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            id, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(ctxUserID, id.UserID)
            c.Set(ctxRole, id.Role)
            return next(c)
        }
    }
}
