package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterAdmin registers administration endpoints under /v1/admin.  All
// routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.PUT("/screens/:id", h.UpsertScreen)

	g.POST("/showtimes", h.CreateShowtime)
	g.DELETE("/showtimes/:id", h.DeleteShowtime)
	g.POST("/showtimes/:id/seats/init", h.InitSeats)

	g.GET("/bookings/cancellation-requests", h.ListCancellationRequests)
	g.POST("/bookings/:id/cancel", h.CancelBooking)
	g.PUT("/bookings/:id/seats", h.ResignBooking)
	g.POST("/bookings/:id/scan", h.ScanBooking)
	g.DELETE("/bookings/:id", h.DeleteBooking)
}
