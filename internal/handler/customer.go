package handler

import (
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/middleware"
    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/service"
    "github.com/iliyamo/cinema-booking/internal/utils"
)

// CustomerHandler serves seat holds, bookings and ticket endpoints for
// authenticated customers.  JWTAuth and RequireRole run before every
// method, so a missing user id means a broken token and yields 401.
type CustomerHandler struct {
    Seats    *service.SeatService
    Bookings *service.BookingService
}

func NewCustomerHandler(seats *service.SeatService, bookings *service.BookingService) *CustomerHandler {
    if seats == nil || bookings == nil {
        panic("nil service passed to NewCustomerHandler")
    }
    return &CustomerHandler{Seats: seats, Bookings: bookings}
}

type holdRequest struct {
    SeatIDs   []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
    SessionID string   `json:"session_id" validate:"omitempty,max=64"`
}

// HoldSeats handles POST /v1/showtimes/:id/hold.  Returns 201 with the
// session id and expiry, or 409 naming the first booked seat.
func (h *CustomerHandler) HoldSeats(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    showtimeID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    var body holdRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    res, err := h.Seats.HoldSeats(c.Request().Context(), showtimeID, body.SeatIDs, body.SessionID)
    if err != nil {
        return respondError(c, err)
    }
    labels := make([]string, 0, len(res.Seats))
    for _, s := range res.Seats {
        labels = append(labels, s.Label())
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "session_id": res.SessionID,
        "expires_at": res.ExpiresAt,
        "seat_ids":   body.SeatIDs,
        "seats":      labels,
    })
}

type releaseRequest struct {
    SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
}

// ReleaseSeats handles POST /v1/showtimes/:id/release.
func (h *CustomerHandler) ReleaseSeats(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    showtimeID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    var body releaseRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    n, err := h.Seats.ReleaseSeats(c.Request().Context(), showtimeID, body.SeatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": n})
}

type customerInfo struct {
    Name  string `json:"name" validate:"omitempty,max=128"`
    Email string `json:"email" validate:"omitempty,email"`
    Phone string `json:"phone" validate:"omitempty,max=32"`
}

type createBookingRequest struct {
    ShowtimeID    uint64       `json:"showtime_id" validate:"required"`
    SeatIDs       []uint64     `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
    SeatLabels    []string     `json:"seat_labels" validate:"omitempty,dive,max=10"`
    AmountCents   uint32       `json:"amount_cents"`
    PaymentMethod string       `json:"payment_method" validate:"omitempty,max=32"`
    PaymentRef    string       `json:"payment_ref" validate:"omitempty,max=128"`
    Customer      customerInfo `json:"customer"`
}

// CreateBooking handles POST /v1/bookings for payments settled outside
// the gateway flow.  Returns 201 with the booking or 409 naming the first
// seat that is already booked.
func (h *CustomerHandler) CreateBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createBookingRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    b, err := h.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingRequest{
        UserID:        userID,
        ShowtimeID:    body.ShowtimeID,
        SeatIDs:       body.SeatIDs,
        SeatLabels:    body.SeatLabels,
        AmountCents:   body.AmountCents,
        Customer:      model.CustomerInfo(body.Customer),
        PaymentMethod: body.PaymentMethod,
        PaymentRef:    body.PaymentRef,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// MyBookings handles GET /v1/my-bookings.
func (h *CustomerHandler) MyBookings(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Bookings.ListUserBookings(c.Request().Context(), userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResponses(list)})
}

// GetBooking handles GET /v1/bookings/:id.  Customers only see their own
// bookings.
func (h *CustomerHandler) GetBooking(c echo.Context) error {
    b, err := h.ownedBooking(c)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResponse(b))
}

// BookingQR handles GET /v1/bookings/:id/qr and returns the ticket QR code
// as a PNG.
func (h *CustomerHandler) BookingQR(c echo.Context) error {
    b, err := h.ownedBooking(c)
    if err != nil {
        return respondError(c, err)
    }
    png, err := utils.QRCodePNG(b.QRCode, 256)
    if err != nil {
        return respondError(c, err)
    }
    return c.Blob(http.StatusOK, "image/png", png)
}

type cancellationRequest struct {
    Reason string `json:"reason" validate:"omitempty,max=500"`
}

// RequestCancellation handles POST /v1/bookings/:id/cancellation-request.
func (h *CustomerHandler) RequestCancellation(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body cancellationRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    b, err := h.Bookings.RequestCancellation(c.Request().Context(), id, userID, body.Reason)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *CustomerHandler) ownedBooking(c echo.Context) (*model.Booking, error) {
    userID, err := getUserID(c)
    if err != nil {
        return nil, fmt.Errorf("%v: %w", err, repository.ErrForbidden)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return nil, fmt.Errorf("invalid booking id: %w", repository.ErrValidation)
    }
    return h.Bookings.GetBookingForUser(c.Request().Context(), id, userID, middleware.Role(c) == model.RoleAdmin)
}
