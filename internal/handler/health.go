package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is the liveness endpoint used by load balancers.  It returns 200
// with {"status":"ok"} as long as the process serves requests.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Ready returns a readiness handler that pings each dependency with a
// short timeout.  Any failure answers 503 naming the dependency.
func Ready(deps map[string]Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        checks := echo.Map{}
        status := http.StatusOK
        for name, p := range deps {
            if p == nil {
                continue
            }
            if err := p.PingContext(ctx); err != nil {
                checks[name] = err.Error()
                status = http.StatusServiceUnavailable
                continue
            }
            checks[name] = "ok"
        }
        return c.JSON(status, echo.Map{"checks": checks})
    }
}
