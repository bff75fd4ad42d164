// Package queue defines the booking lifecycle messages exchanged over
// RabbitMQ, the publisher used by the services and the consumer that
// appends every event to the booking audit log.
package queue

import "time"

// Event types.  Each type is published to the queue of the same name.
const (
    BookingConfirmed = "booking.confirmed"
    BookingCancelled = "booking.cancelled"
    BookingDeleted   = "booking.deleted"
)

// Queues lists every queue the publisher and consumer declare.
var Queues = []string{BookingConfirmed, BookingCancelled, BookingDeleted}

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the primary database.
type BookingEvent struct {
    Type              string    `json:"type"`
    BookingID         uint64    `json:"booking_id"`
    UserID            uint64    `json:"user_id"`
    ShowtimeID        uint64    `json:"showtime_id"`
    TicketNumber      string    `json:"ticket_number"`
    ScreenName        string    `json:"screen_name"`
    Status            string    `json:"status"`
    SeatLabels        []string  `json:"seats"`
    TotalAmountCents  uint32    `json:"total_amount_cents"`
    RefundAmountCents *uint32   `json:"refund_amount_cents,omitempty"`
    Reason            string    `json:"reason,omitempty"`
    OccurredAt        time.Time `json:"occurred_at"`
}
