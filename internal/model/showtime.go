package model

import "time"

// Showtime status values.
const (
    ShowtimeActive    = "ACTIVE"
    ShowtimeCompleted = "COMPLETED"
    ShowtimeCancelled = "CANCELLED"
)

// Showtime is one scheduled screening.  Movie and theater records belong
// to the catalog and are referenced by id only.
//
// TotalSeats and AvailableSeats summarise the materialized seat map.
// AvailableSeats is recomputed from seat state inside the same
// transaction as every seat change and is never written on its own.
type Showtime struct {
    ID               uint64    // showtimes.id
    MovieID          uint64    // showtimes.movie_id
    TheaterID        uint64    // showtimes.theater_id
    ScreenID         uint64    // showtimes.screen_id
    ScreenName       string    // showtimes.screen_name
    StartsAt         time.Time // showtimes.starts_at
    TicketPriceCents uint32    // showtimes.ticket_price_cents
    TotalSeats       uint32    // showtimes.total_seats
    AvailableSeats   uint32    // showtimes.available_seats
    Status           string    // showtimes.status
    CreatedAt        time.Time // showtimes.created_at
    UpdatedAt        time.Time // showtimes.updated_at
}
