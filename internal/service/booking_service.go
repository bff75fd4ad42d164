package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/queue"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// BookingService converts seat selections into bookings and reverses
// them.  Each operation is one transaction covering the booking row, every
// touched seat and the showtime counters.
type BookingService struct {
    store repository.Store
    cfg   settings
}

// NewBookingService builds a BookingService on store.
func NewBookingService(store repository.Store, opts ...Option) *BookingService {
    return &BookingService{store: store, cfg: newSettings(opts)}
}

// CreateBookingRequest is the input of CreateBooking.  The payment has
// already been verified by the caller.
type CreateBookingRequest struct {
    UserID        uint64
    ShowtimeID    uint64
    SeatIDs       []uint64
    SeatLabels    []string // optional, defaults to the seats' labels
    AmountCents   uint32   // zero means the sum of the seat prices
    Customer      model.CustomerInfo
    PaymentMethod string // defaults to ONLINE
    PaymentRef    string
}

// CreateBooking books every requested seat for the user.  Seats only need
// to be unbooked; a hold by any session does not block the booking.  If a
// single seat is booked already the call fails with ErrConflict naming
// that seat and nothing changes.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        var err error
        b, err = s.createTx(ctx, tx, req)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("create booking: %w", err)
    }
    s.publish(ctx, queue.BookingConfirmed, b, "")
    return b, nil
}

// createTx is CreateBooking inside an existing transaction.  The payment
// flow calls it so the order update commits with the booking.
func (s *BookingService) createTx(ctx context.Context, tx repository.Tx, req CreateBookingRequest) (*model.Booking, error) {
    ids := uniqueIDs(req.SeatIDs)
    if len(ids) == 0 {
        return nil, fmt.Errorf("no seat ids: %w", repository.ErrValidation)
    }
    now := s.cfg.now()
    if _, err := tx.GetUser(ctx, req.UserID); err != nil {
        return nil, err
    }
    st, err := prepareShowtime(ctx, tx, req.ShowtimeID, now)
    if err != nil {
        return nil, err
    }
    seats, err := lockShowtimeSeats(ctx, tx, st.ID, ids)
    if err != nil {
        return nil, err
    }
    var sum uint32
    for _, seat := range seats {
        if seat.IsBooked {
            return nil, repository.NewSeatError(seat.ID, repository.ErrSeatAlreadyBooked)
        }
        sum += seat.PriceCents
    }

    amount := req.AmountCents
    if amount == 0 {
        amount = sum
    }
    labels := seatLabels(seats)
    if len(req.SeatLabels) == len(ids) {
        labels = append([]string(nil), req.SeatLabels...)
    }
    method := req.PaymentMethod
    if method == "" {
        method = model.PaymentMethodOnline
    }
    b := &model.Booking{
        UserID:                   req.UserID,
        ShowtimeID:               st.ID,
        SeatIDs:                  ids,
        SeatLabels:               labels,
        TotalAmountCents:         amount,
        TicketPriceSnapshotCents: st.TicketPriceCents,
        ScreenName:               st.ScreenName,
        Status:                   model.BookingConfirmed,
        TicketNumber:             newTicketNumber(),
        QRCode:                   newQRToken(),
        PaymentMethod:            method,
        CustomerName:             req.Customer.Name,
        CustomerEmail:            req.Customer.Email,
        CustomerPhone:            req.Customer.Phone,
    }
    if req.PaymentRef != "" {
        ref := req.PaymentRef
        b.PaymentRef = &ref
    }
    if err := tx.InsertBooking(ctx, b); err != nil {
        return nil, fmt.Errorf("insert booking: %w", err)
    }
    for i := range seats {
        seats[i].Book()
    }
    if err := tx.UpdateSeats(ctx, seats); err != nil {
        return nil, err
    }
    if _, err := recount(ctx, tx, st, now); err != nil {
        return nil, err
    }
    return b, nil
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    b, err := s.store.GetBooking(ctx, id)
    if err != nil {
        return nil, fmt.Errorf("get booking %d: %w", id, err)
    }
    return b, nil
}

// GetBookingForUser returns the booking when it belongs to userID, or
// ErrForbidden.  Admins may read any booking.
func (s *BookingService) GetBookingForUser(ctx context.Context, id, userID uint64, admin bool) (*model.Booking, error) {
    b, err := s.GetBooking(ctx, id)
    if err != nil {
        return nil, err
    }
    if !admin && b.UserID != userID {
        return nil, fmt.Errorf("booking %d: %w", id, repository.ErrForbidden)
    }
    return b, nil
}

// ListUserBookings returns the user's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
    out, err := s.store.ListBookingsByUser(ctx, userID)
    if err != nil {
        return nil, fmt.Errorf("list bookings of user %d: %w", userID, err)
    }
    return out, nil
}

// ListCancellationRequests returns bookings waiting for an admin decision.
func (s *BookingService) ListCancellationRequests(ctx context.Context) ([]model.Booking, error) {
    out, err := s.store.ListBookingsByStatus(ctx, model.BookingCancellationRequested)
    if err != nil {
        return nil, fmt.Errorf("list cancellation requests: %w", err)
    }
    return out, nil
}

// RequestCancellation moves the user's CONFIRMED booking to
// CANCELLATION_REQUESTED.  Seats stay booked until an admin cancels.
func (s *BookingService) RequestCancellation(ctx context.Context, bookingID, userID uint64, reason string) (*model.Booking, error) {
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        var err error
        if b, err = tx.LockBooking(ctx, bookingID); err != nil {
            return err
        }
        if b.UserID != userID {
            return repository.ErrForbidden
        }
        if b.Status != model.BookingConfirmed {
            return fmt.Errorf("booking is %s: %w", b.Status, repository.ErrInvalidState)
        }
        b.Status = model.BookingCancellationRequested
        b.CancellationReason = optionalString(reason)
        return tx.UpdateBooking(ctx, b)
    })
    if err != nil {
        return nil, fmt.Errorf("request cancellation of booking %d: %w", bookingID, err)
    }
    return b, nil
}

// CancelBooking cancels a CONFIRMED or CANCELLATION_REQUESTED booking,
// unbooks its seats and records a refund of the configured share of the
// total.  Cancelling a cancelled booking fails with ErrInvalidState.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uint64, reason string) (*model.Booking, error) {
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        var (
            st  *model.Showtime
            err error
        )
        if b, st, err = lockBookingScope(ctx, tx, bookingID, now); err != nil {
            return err
        }
        switch b.Status {
        case model.BookingConfirmed, model.BookingCancellationRequested:
        default:
            return fmt.Errorf("booking is %s: %w", b.Status, repository.ErrInvalidState)
        }
        if err := unbookSeats(ctx, tx, st.ID, b.SeatIDs); err != nil {
            return err
        }
        refund := uint32(uint64(b.TotalAmountCents) * uint64(s.cfg.refundPercent) / 100)
        b.Status = model.BookingCancelled
        if r := optionalString(reason); r != nil {
            b.CancellationReason = r
        }
        b.RefundAmountCents = &refund
        b.RefundedAt = &now
        if err := tx.UpdateBooking(ctx, b); err != nil {
            return err
        }
        _, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
    }
    s.publish(ctx, queue.BookingCancelled, b, reason)
    return b, nil
}

// ScanBooking validates a ticket at the door.  Any non-cancelled booking
// becomes CONFIRMED; a cancelled one fails with ErrInvalidState.
func (s *BookingService) ScanBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        var err error
        if b, err = tx.LockBooking(ctx, bookingID); err != nil {
            return err
        }
        if b.Status == model.BookingCancelled {
            return fmt.Errorf("booking is cancelled: %w", repository.ErrInvalidState)
        }
        if b.Status == model.BookingConfirmed {
            return nil
        }
        b.Status = model.BookingConfirmed
        return tx.UpdateBooking(ctx, b)
    })
    if err != nil {
        return nil, fmt.Errorf("scan booking %d: %w", bookingID, err)
    }
    return b, nil
}

// ResignBooking moves a booking to newSeatIDs on the same showtime.  The
// current seats are released first, so the new set may overlap the old
// one.  A new seat booked by someone else fails with ErrConflict.
func (s *BookingService) ResignBooking(ctx context.Context, bookingID uint64, newSeatIDs []uint64) (*model.Booking, error) {
    ids := uniqueIDs(newSeatIDs)
    if len(ids) == 0 {
        return nil, fmt.Errorf("resign booking %d: no seat ids: %w", bookingID, repository.ErrValidation)
    }
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        var (
            st  *model.Showtime
            err error
        )
        if b, st, err = lockBookingScope(ctx, tx, bookingID, now); err != nil {
            return err
        }
        if b.Status == model.BookingCancelled {
            return fmt.Errorf("booking is cancelled: %w", repository.ErrInvalidState)
        }

        // Lock old and new seats in one ordered statement.
        locked, err := tx.LockSeats(ctx, uniqueIDs(append(append([]uint64(nil), b.SeatIDs...), ids...)))
        if err != nil {
            return err
        }
        byID := make(map[uint64]model.Seat, len(locked))
        for _, seat := range locked {
            if seat.ShowtimeID == st.ID {
                byID[seat.ID] = seat
            }
        }
        for _, id := range b.SeatIDs {
            if seat, ok := byID[id]; ok {
                seat.Unbook()
                byID[id] = seat
            }
        }
        next := make([]model.Seat, 0, len(ids))
        for _, id := range ids {
            seat, ok := byID[id]
            if !ok {
                return repository.NewSeatError(id, repository.ErrSeatNotFound)
            }
            if seat.IsBooked {
                return repository.NewSeatError(id, repository.ErrSeatAlreadyBooked)
            }
            seat.Book()
            byID[id] = seat
            next = append(next, seat)
        }
        changed := make([]model.Seat, 0, len(byID))
        for _, seat := range locked {
            if cur, ok := byID[seat.ID]; ok {
                changed = append(changed, cur)
            }
        }
        if err := tx.UpdateSeats(ctx, changed); err != nil {
            return err
        }
        b.SeatIDs = ids
        b.SeatLabels = seatLabels(next)
        if err := tx.UpdateBooking(ctx, b); err != nil {
            return err
        }
        _, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return nil, fmt.Errorf("resign booking %d: %w", bookingID, err)
    }
    return b, nil
}

// DeleteBooking removes a booking permanently.  Seats of an active
// booking are unbooked and the counters restored in the same
// transaction.  A cancelled booking released its seats already and they
// may have been booked again since, so they are left untouched.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID uint64) error {
    var b *model.Booking
    err := s.store.WithTx(ctx, func(tx repository.Tx) error {
        now := s.cfg.now()
        var (
            st  *model.Showtime
            err error
        )
        if b, st, err = lockBookingScope(ctx, tx, bookingID, now); err != nil {
            return err
        }
        if err := deleteBookingTx(ctx, tx, st.ID, b); err != nil {
            return err
        }
        _, err = recount(ctx, tx, st, now)
        return err
    })
    if err != nil {
        return fmt.Errorf("delete booking %d: %w", bookingID, err)
    }
    s.publish(ctx, queue.BookingDeleted, b, "")
    return nil
}

// lockBookingScope locks, in order, the booking's showtime and then the
// booking, so booking operations take locks in the same order as holds.
func lockBookingScope(ctx context.Context, tx repository.Tx, bookingID uint64, now time.Time) (*model.Booking, *model.Showtime, error) {
    peek, err := tx.GetBooking(ctx, bookingID)
    if err != nil {
        return nil, nil, err
    }
    st, err := prepareShowtime(ctx, tx, peek.ShowtimeID, now)
    if err != nil {
        return nil, nil, err
    }
    b, err := tx.LockBooking(ctx, bookingID)
    if err != nil {
        return nil, nil, err
    }
    return b, st, nil
}

// deleteBookingTx removes b, unbooking its seats first when it is still
// active.  The caller recounts the showtime.
func deleteBookingTx(ctx context.Context, tx repository.Tx, showtimeID uint64, b *model.Booking) error {
    if b.Active() {
        if err := unbookSeats(ctx, tx, showtimeID, b.SeatIDs); err != nil {
            return err
        }
    }
    return tx.DeleteBooking(ctx, b.ID)
}

// unbookSeats frees the booked seats among ids.  Seats no longer present
// are ignored.
func unbookSeats(ctx context.Context, tx repository.Tx, showtimeID uint64, ids []uint64) error {
    locked, err := tx.LockSeats(ctx, ids)
    if err != nil {
        return err
    }
    changed := make([]model.Seat, 0, len(locked))
    for _, seat := range locked {
        if seat.ShowtimeID != showtimeID || !seat.IsBooked {
            continue
        }
        seat.Unbook()
        changed = append(changed, seat)
    }
    return tx.UpdateSeats(ctx, changed)
}

// publish sends ev after commit.  Failures are logged, never returned:
// the booking is already durable.
func (s *BookingService) publish(ctx context.Context, typ string, b *model.Booking, reason string) {
    publishBookingEvent(ctx, s.cfg, "bookings", typ, b, reason)
}

func publishBookingEvent(ctx context.Context, cfg settings, component, typ string, b *model.Booking, reason string) {
    if b == nil {
        return
    }
    ev := queue.BookingEvent{
        Type:              typ,
        BookingID:         b.ID,
        UserID:            b.UserID,
        ShowtimeID:        b.ShowtimeID,
        TicketNumber:      b.TicketNumber,
        ScreenName:        b.ScreenName,
        Status:            b.Status,
        SeatLabels:        b.SeatLabels,
        TotalAmountCents:  b.TotalAmountCents,
        RefundAmountCents: b.RefundAmountCents,
        Reason:            reason,
        OccurredAt:        cfg.now(),
    }
    log := cfg.logger.WithFields(logrus.Fields{
        "component":   component,
        "event":       typ,
        "booking_id":  b.ID,
        "showtime_id": b.ShowtimeID,
        "seat_count":  len(b.SeatIDs),
    })
    if err := cfg.publisher.Publish(ctx, ev); err != nil {
        log.WithError(err).Warn("publish booking event failed")
        return
    }
    log.Info("booking event published")
}

// newTicketNumber returns "TKT" followed by eight upper case hex digits.
func newTicketNumber() string {
    return "TKT" + strings.ToUpper(uuid.NewString()[:8])
}

// newQRToken returns the opaque token encoded in a ticket's QR code.
func newQRToken() string {
    return "QR_" + uuid.NewString()
}

func optionalString(s string) *string {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil
    }
    return &s
}

// IsSeatConflict reports whether err is a seat conflict and returns the
// seat id when known.
func IsSeatConflict(err error) (uint64, bool) {
    if !errors.Is(err, repository.ErrConflict) {
        return 0, false
    }
    id, _ := repository.SeatIDOf(err)
    return id, true
}
