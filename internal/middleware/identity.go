package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys written by JWTAuth.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// UserID returns the authenticated caller's id, or false when the request
// carries none.
func UserID(c echo.Context) (uint64, bool) {
    switch v := c.Get(ctxUserID).(type) {
    case uint64:
        return v, v > 0
    case int64:
        return uint64(v), v > 0
    case float64:
        return uint64(v), v > 0
    case string:
        n, err := strconv.ParseUint(v, 10, 64)
        return n, err == nil && n > 0
    }
    return 0, false
}

// Role returns the authenticated caller's role, or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// identityKey identifies the caller for rate limit buckets: the user id
// when authenticated, "anon" otherwise.
func identityKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
