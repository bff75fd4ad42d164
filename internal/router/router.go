package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness at /healthz and readiness at /readyz.
func RegisterRoutes(e *echo.Echo, deps map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(deps))
}

// RegisterPublic registers unauthenticated browse endpoints.  Only the
// screen layout goes through the response cache; showtime counters and
// seat maps change with every hold and are always served fresh.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/showtimes", p.SearchShowtimes)
	e.GET("/v1/showtimes/:id", p.GetShowtime)
	e.GET("/v1/showtimes/:id/seats", p.ListSeats)
	e.GET("/v1/screens/:id", p.GetScreen, cache)
}
