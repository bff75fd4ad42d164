package model

import "time"

// Booking status values.  CANCELLED is terminal.
const (
    BookingConfirmed             = "CONFIRMED"
    BookingCancellationRequested = "CANCELLATION_REQUESTED"
    BookingCancelled             = "CANCELLED"
)

// Payment methods recorded on a booking.
const (
    PaymentMethodOnline   = "ONLINE"
    PaymentMethodRazorpay = "RAZORPAY"
)

// Booking records the transaction that booked a set of seats.  The seat
// rows are the source of truth for "booked"; a booking only references
// them by id.
//
// Fields:
//  ID                       – primary key identifier.
//  UserID                   – customer who owns the booking.
//  ShowtimeID               – showtime the seats belong to.
//  SeatIDs                  – ordered seat ids.
//  SeatLabels               – labels shown on the ticket, e.g. A1.
//  TotalAmountCents         – amount charged.
//  TicketPriceSnapshotCents – showtime ticket price at booking time.
//  ScreenName               – screen name at booking time.
//  Status                   – CONFIRMED, CANCELLATION_REQUESTED or CANCELLED.
//  TicketNumber             – printed ticket number.
//  QRCode                   – opaque token encoded in the ticket QR code.
//  PaymentMethod/PaymentRef – how and where the payment happened.
//  CancellationReason       – reason supplied on request or cancel.
//  RefundAmountCents        – refund computed on cancel.
//  RefundedAt               – when the refund was computed.
type Booking struct {
    ID                       uint64     // bookings.id
    UserID                   uint64     // bookings.user_id
    ShowtimeID               uint64     // bookings.showtime_id
    SeatIDs                  []uint64   // booking_seats.seat_id ordered by position
    SeatLabels               []string   // booking_seats.seat_label ordered by position
    TotalAmountCents         uint32     // bookings.total_amount_cents
    TicketPriceSnapshotCents uint32     // bookings.ticket_price_snapshot_cents
    ScreenName               string     // bookings.screen_name
    Status                   string     // bookings.status
    TicketNumber             string     // bookings.ticket_number
    QRCode                   string     // bookings.qr_code
    PaymentMethod            string     // bookings.payment_method
    PaymentRef               *string    // bookings.payment_ref (nullable)
    CustomerName             string     // bookings.customer_name
    CustomerEmail            string     // bookings.customer_email
    CustomerPhone            string     // bookings.customer_phone
    CancellationReason       *string    // bookings.cancellation_reason (nullable)
    RefundAmountCents        *uint32    // bookings.refund_amount_cents (nullable)
    RefundedAt               *time.Time // bookings.refunded_at (nullable)
    CreatedAt                time.Time  // bookings.created_at
    UpdatedAt                time.Time  // bookings.updated_at
}

// Active reports whether the booking still owns its seats.
func (b Booking) Active() bool { return b.Status != BookingCancelled }

// CustomerInfo is the contact data captured at checkout.
type CustomerInfo struct {
    Name  string
    Email string
    Phone string
}

// PaymentOrder is an order created with the payment gateway before
// checkout.  It is marked paid once its signature is verified and the
// booking was created.
type PaymentOrder struct {
    ID          string    // payment_orders.id
    UserID      uint64    // payment_orders.user_id
    AmountCents uint32    // payment_orders.amount_cents
    Currency    string    // payment_orders.currency
    Receipt     string    // payment_orders.receipt
    Status      string    // payment_orders.status (CREATED, PAID)
    BookingID   *uint64   // payment_orders.booking_id (nullable)
    CreatedAt   time.Time // payment_orders.created_at
}

// Payment order status values.
const (
    PaymentOrderCreated = "CREATED"
    PaymentOrderPaid    = "PAID"
)
