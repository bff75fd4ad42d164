package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Limits groups the per-scope rate limit middleware for customer writes.
type Limits struct {
	Holds    echo.MiddlewareFunc
	Bookings echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RegisterCustomer registers customer endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER or ADMIN role.  Hold writes and
// checkout writes are limited by separate token buckets.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, p *handler.PaymentHandler, jwtSecret string, lim Limits) {
	if lim.Holds == nil {
		lim.Holds = passThrough
	}
	if lim.Bookings == nil {
		lim.Bookings = passThrough
	}
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/showtimes/:id/hold", h.HoldSeats, lim.Holds)
	g.POST("/showtimes/:id/release", h.ReleaseSeats, lim.Holds)

	g.POST("/bookings", h.CreateBooking, lim.Bookings)
	g.GET("/my-bookings", h.MyBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.GET("/bookings/:id/qr", h.BookingQR)
	g.POST("/bookings/:id/cancellation-request", h.RequestCancellation)

	g.POST("/payments/orders", p.CreateOrder, lim.Bookings)
	g.POST("/payments/verify", p.VerifyPayment, lim.Bookings)
}
