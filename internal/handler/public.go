package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// PublicHandler serves the unauthenticated read endpoints.
type PublicHandler struct {
    Showtimes *service.ShowtimeService
    Seats     *service.SeatService
}

func NewPublicHandler(showtimes *service.ShowtimeService, seats *service.SeatService) *PublicHandler {
    if showtimes == nil || seats == nil {
        panic("nil service passed to NewPublicHandler")
    }
    return &PublicHandler{Showtimes: showtimes, Seats: seats}
}

// SearchShowtimes handles GET /v1/showtimes.  Query parameters:
// movie_id, theater_id, screen_id, status, time ("upcoming" default or
// "any"), page and page_size (max 100).
func (h *PublicHandler) SearchShowtimes(c echo.Context) error {
    q := repository.ShowtimeSearchQuery{
        MovieID:    queryUint(c, "movie_id"),
        TheaterID:  queryUint(c, "theater_id"),
        ScreenID:   queryUint(c, "screen_id"),
        Status:     strings.TrimSpace(c.QueryParam("status")),
        TimeFilter: strings.TrimSpace(c.QueryParam("time")),
    }
    q.Page, _ = strconv.Atoi(c.QueryParam("page"))
    q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
    q.Normalize()

    items, total, err := h.Showtimes.SearchShowtimes(c.Request().Context(), q)
    if err != nil {
        return respondError(c, err)
    }
    data := make([]showtimeResponse, 0, len(items))
    for i := range items {
        data = append(data, toShowtimeResponse(&items[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      data,
        "total":     total,
        "page":      q.Page,
        "page_size": q.PageSize,
    })
}

func queryUint(c echo.Context, name string) uint64 {
    n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
    return n
}

// GetShowtime handles GET /v1/showtimes/:id.  Counters are refreshed
// against the current time before they are returned.
func (h *PublicHandler) GetShowtime(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    st, err := h.Showtimes.GetShowtime(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, toShowtimeResponse(st))
}

// ListSeats handles GET /v1/showtimes/:id/seats.  The seat map is
// generated on first access.
func (h *PublicHandler) ListSeats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    seats, err := h.Seats.ListSeats(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "showtime_id": id,
        "seats":       toSeatResponses(seats, time.Now().UTC()),
    })
}

// GetScreen handles GET /v1/screens/:id and returns the screen layout.
func (h *PublicHandler) GetScreen(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
    }
    sc, err := h.Showtimes.GetScreen(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":         sc.ID,
        "theater_id": sc.TheaterID,
        "name":       sc.Name,
        "layout":     sc.Layout,
    })
}
