package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger writes one logrus entry per request.  Server errors log at
// error level, client errors at warn, the rest at info.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       req.URL.Path,
                "route":      c.Path(),
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "ip":         c.RealIP(),
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "user":       identityKey(c),
            })
            switch {
            case res.Status >= 500:
                entry.Error("request failed")
            case res.Status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
