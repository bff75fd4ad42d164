package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// AdminHandler serves screen, showtime and booking administration.  All
// routes require the ADMIN role.
type AdminHandler struct {
    Showtimes *service.ShowtimeService
    Seats     *service.SeatService
    Bookings  *service.BookingService
    // ScreenChanged runs after a screen is written, e.g. to drop the
    // cached GET /v1/screens/:id response.  Optional.
    ScreenChanged func(ctx context.Context, screenID uint64)
}

func NewAdminHandler(showtimes *service.ShowtimeService, seats *service.SeatService, bookings *service.BookingService) *AdminHandler {
    if showtimes == nil || seats == nil || bookings == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{Showtimes: showtimes, Seats: seats, Bookings: bookings}
}

type upsertScreenRequest struct {
    TheaterID uint64              `json:"theater_id" validate:"required"`
    Name      string              `json:"name" validate:"required,max=100"`
    Layout    *model.ScreenLayout `json:"layout"`
}

// UpsertScreen handles PUT /v1/admin/screens/:id.
func (h *AdminHandler) UpsertScreen(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
    }
    var body upsertScreenRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    sc, err := h.Showtimes.UpsertScreen(c.Request().Context(), model.Screen{
        ID:        id,
        TheaterID: body.TheaterID,
        Name:      body.Name,
        Layout:    body.Layout,
    })
    if err != nil {
        return respondError(c, err)
    }
    if h.ScreenChanged != nil {
        h.ScreenChanged(c.Request().Context(), sc.ID)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":         sc.ID,
        "theater_id": sc.TheaterID,
        "name":       sc.Name,
        "layout":     sc.Layout,
    })
}

type createShowtimeRequest struct {
    MovieID          uint64                `json:"movie_id" validate:"required"`
    TheaterID        uint64                `json:"theater_id" validate:"required"`
    ScreenID         uint64                `json:"screen_id" validate:"required"`
    ScreenName       string                `json:"screen_name" validate:"omitempty,max=100"`
    StartsAt         time.Time             `json:"starts_at" validate:"required"`
    TicketPriceCents uint32                `json:"ticket_price_cents"`
    TotalSeats       uint32                `json:"total_seats"`
    AvailableSeats   uint32                `json:"available_seats" validate:"ltefield=TotalSeats"`
    Sections         []model.LayoutSection `json:"sections"`
}

// CreateShowtime handles POST /v1/admin/showtimes.  The seat map is
// generated in the same transaction.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
    var body createShowtimeRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    st, err := h.Showtimes.ScheduleShowtime(c.Request().Context(), service.ScheduleShowtimeRequest(body))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, toShowtimeResponse(st))
}

// DeleteShowtime handles DELETE /v1/admin/showtimes/:id.
func (h *AdminHandler) DeleteShowtime(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    if err := h.Showtimes.DeleteShowtime(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// InitSeats handles POST /v1/admin/showtimes/:id/seats/init.  It is
// idempotent: a showtime that has seats is returned unchanged.
func (h *AdminHandler) InitSeats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    st, err := h.Seats.EnsureSeatsInitialized(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toShowtimeResponse(st))
}

// ListCancellationRequests handles GET /v1/admin/bookings/cancellation-requests.
func (h *AdminHandler) ListCancellationRequests(c echo.Context) error {
    list, err := h.Bookings.ListCancellationRequests(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResponses(list)})
}

type cancelRequest struct {
    Reason string `json:"reason" validate:"omitempty,max=500"`
}

// CancelBooking handles POST /v1/admin/bookings/:id/cancel.  Cancelling
// twice is 422.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body cancelRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    b, err := h.Bookings.CancelBooking(c.Request().Context(), id, body.Reason)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResponse(b))
}

type resignRequest struct {
    SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
}

// ResignBooking handles PUT /v1/admin/bookings/:id/seats.
func (h *AdminHandler) ResignBooking(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body resignRequest
    if ok, err := bindAndValidate(c, &body); !ok {
        return err
    }
    b, err := h.Bookings.ResignBooking(c.Request().Context(), id, body.SeatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ScanBooking handles POST /v1/admin/bookings/:id/scan.
func (h *AdminHandler) ScanBooking(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Bookings.ScanBooking(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingResponse(b))
}

// DeleteBooking handles DELETE /v1/admin/bookings/:id.
func (h *AdminHandler) DeleteBooking(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if err := h.Bookings.DeleteBooking(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
