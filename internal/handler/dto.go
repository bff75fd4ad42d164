package handler

import (
    "time"

    "github.com/jinzhu/copier"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// Seat status values in API responses.
const (
    seatAvailable = "AVAILABLE"
    seatHeld      = "HELD"
    seatBooked    = "BOOKED"
)

type showtimeResponse struct {
    ID               uint64    `json:"id"`
    MovieID          uint64    `json:"movie_id"`
    TheaterID        uint64    `json:"theater_id"`
    ScreenID         uint64    `json:"screen_id"`
    ScreenName       string    `json:"screen_name"`
    StartsAt         time.Time `json:"starts_at"`
    TicketPriceCents uint32    `json:"ticket_price_cents"`
    TotalSeats       uint32    `json:"total_seats"`
    AvailableSeats   uint32    `json:"available_seats"`
    Status           string    `json:"status"`
}

type seatResponse struct {
    ID         uint64     `json:"id"`
    RowLabel   string     `json:"row_label"`
    SeatNumber uint32     `json:"seat_number"`
    Label      string     `json:"label"`
    SeatType   string     `json:"seat_type"`
    PriceCents uint32     `json:"price_cents"`
    Status     string     `json:"status"`
    HoldExpiry *time.Time `json:"hold_expiry,omitempty"`
}

type bookingResponse struct {
    ID                       uint64     `json:"id"`
    UserID                   uint64     `json:"user_id"`
    ShowtimeID               uint64     `json:"showtime_id"`
    SeatIDs                  []uint64   `json:"seat_ids"`
    SeatLabels               []string   `json:"seats"`
    TotalAmountCents         uint32     `json:"total_amount_cents"`
    TicketPriceSnapshotCents uint32     `json:"ticket_price_snapshot_cents"`
    ScreenName               string     `json:"screen_name"`
    Status                   string     `json:"status"`
    TicketNumber             string     `json:"ticket_number"`
    QRCode                   string     `json:"qr_code"`
    PaymentMethod            string     `json:"payment_method"`
    PaymentRef               *string    `json:"payment_ref,omitempty"`
    CustomerName             string     `json:"customer_name,omitempty"`
    CustomerEmail            string     `json:"customer_email,omitempty"`
    CustomerPhone            string     `json:"customer_phone,omitempty"`
    CancellationReason       *string    `json:"cancellation_reason,omitempty"`
    RefundAmountCents        *uint32    `json:"refund_amount_cents,omitempty"`
    RefundedAt               *time.Time `json:"refunded_at,omitempty"`
    CreatedAt                time.Time  `json:"created_at"`
}

func toShowtimeResponse(st *model.Showtime) showtimeResponse {
    var out showtimeResponse
    _ = copier.Copy(&out, st)
    return out
}

// toSeatResponses flattens seat state into one status.  Lapsed holds
// read as available.
func toSeatResponses(seats []model.Seat, now time.Time) []seatResponse {
    out := make([]seatResponse, 0, len(seats))
    for _, s := range seats {
        var r seatResponse
        _ = copier.Copy(&r, &s)
        r.Label = s.Label()
        r.HoldExpiry = nil
        switch {
        case s.IsBooked:
            r.Status = seatBooked
        case s.IsHeld && !s.HoldExpired(now):
            r.Status = seatHeld
            r.HoldExpiry = s.HoldExpiry
        default:
            r.Status = seatAvailable
        }
        out = append(out, r)
    }
    return out
}

func toBookingResponse(b *model.Booking) bookingResponse {
    var out bookingResponse
    _ = copier.Copy(&out, b)
    if out.SeatIDs == nil {
        out.SeatIDs = []uint64{}
    }
    if out.SeatLabels == nil {
        out.SeatLabels = []string{}
    }
    return out
}

func toBookingResponses(bs []model.Booking) []bookingResponse {
    out := make([]bookingResponse, 0, len(bs))
    for i := range bs {
        out = append(out, toBookingResponse(&bs[i]))
    }
    return out
}
