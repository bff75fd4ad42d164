package model

import (
    "strconv"
    "time"
)

// Seat type values.  They double as the category names used when a
// screen has no explicit layout.
const (
    SeatTypeRegular = "REGULAR"
    SeatTypePremium = "PREMIUM"
    SeatTypeVIP     = "VIP"
)

// Seat is a single sellable seat of one showtime.  Seats are
// materialized in bulk the first time a showtime's seat map is needed and
// are deleted together with the showtime.
//
// Fields:
//  ID            – primary key identifier.
//  ShowtimeID    – owning showtime.
//  RowLabel      – row letter(s), e.g. "A" or "AA".
//  SeatNumber    – 1-based number within the row.
//  SeatType      – REGULAR, PREMIUM or VIP.
//  PriceCents    – price of this seat in cents.
//  IsBooked      – true once a confirmed booking owns the seat.
//  IsHeld        – true while a checkout session holds the seat.
//  HoldExpiry    – when the hold lapses; nil when not held.
//  HoldSessionID – checkout session that placed the hold; nil when not held.
type Seat struct {
    ID            uint64     // seats.id
    ShowtimeID    uint64     // seats.showtime_id
    RowLabel      string     // seats.row_label
    SeatNumber    uint32     // seats.seat_number
    SeatType      string     // seats.seat_type
    PriceCents    uint32     // seats.price_cents
    IsBooked      bool       // seats.is_booked
    IsHeld        bool       // seats.is_held
    HoldExpiry    *time.Time // seats.hold_expiry (nullable)
    HoldSessionID *string    // seats.hold_session_id (nullable)
}

// Label returns the human readable seat name such as "A1".
func (s Seat) Label() string {
    return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// HoldExpired reports whether the seat carries a hold whose expiry is not
// after now.  A held seat without an expiry is treated as expired.
func (s Seat) HoldExpired(now time.Time) bool {
    if !s.IsHeld {
        return false
    }
    return s.HoldExpiry == nil || !s.HoldExpiry.After(now)
}

// Available reports whether the seat can be held or booked at now: it is
// not booked and either not held or only held by a lapsed hold.
func (s Seat) Available(now time.Time) bool {
    if s.IsBooked {
        return false
    }
    return !s.IsHeld || s.HoldExpired(now)
}

// Hold marks the seat as held by sessionID until expiry.
func (s *Seat) Hold(sessionID string, expiry time.Time) {
    exp := expiry.UTC()
    sid := sessionID
    s.IsHeld = true
    s.HoldExpiry = &exp
    s.HoldSessionID = &sid
}

// ClearHold drops all hold fields.
func (s *Seat) ClearHold() {
    s.IsHeld = false
    s.HoldExpiry = nil
    s.HoldSessionID = nil
}

// Book marks the seat booked.  A booked seat never keeps a hold.
func (s *Seat) Book() {
    s.IsBooked = true
    s.ClearHold()
}

// Unbook returns the seat to the free state.
func (s *Seat) Unbook() {
    s.IsBooked = false
    s.ClearHold()
}
