package repository

import (
    "context"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// Reader groups the lookups that do not change state.  Both Store (outside
// a transaction) and Tx (inside one) implement it.
type Reader interface {
    GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
    GetScreen(ctx context.Context, id uint64) (*model.Screen, error)
    GetUser(ctx context.Context, id uint64) (*model.User, error)
    GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
    GetPaymentOrder(ctx context.Context, id string) (*model.PaymentOrder, error)
    ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
    ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error)
    ListBookingIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error)
    // ListShowtimeIDsWithExpiredHolds returns showtimes owning at least one
    // seat whose hold expired at or before now.
    ListShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error)
    // ListShowtimesStartedBefore returns showtimes whose start time is
    // before cutoff, oldest first.
    ListShowtimesStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error)
}

// Tx is a unit of work.  Every seat state change and the matching
// showtime counter update happen through one Tx so they commit or roll
// back together.  Implementations lock the showtime row first
// (LockShowtime) and seat rows second (LockSeats).
type Tx interface {
    Reader

    // Showtimes and screens.
    LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
    InsertShowtime(ctx context.Context, st *model.Showtime) error
    DeleteShowtime(ctx context.Context, id uint64) error
    SetSeatCounts(ctx context.Context, showtimeID uint64, total, available uint32) error
    UpsertScreen(ctx context.Context, sc *model.Screen) error

    // Seats.
    ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error)
    // LockSeats loads and locks the given seats.  Unknown ids are simply
    // absent from the result; callers decide whether that is an error.
    LockSeats(ctx context.Context, ids []uint64) ([]model.Seat, error)
    InsertSeats(ctx context.Context, seats []model.Seat) error
    UpdateSeats(ctx context.Context, seats []model.Seat) error
    // ClearExpiredHolds drops holds of the showtime that expired at or
    // before now on seats that are not booked, returning how many were
    // cleared.
    ClearExpiredHolds(ctx context.Context, showtimeID uint64, now time.Time) (int64, error)
    // CountSeats returns the number of seats and the number of seats that
    // are available at now.
    CountSeats(ctx context.Context, showtimeID uint64, now time.Time) (total, available uint32, err error)
    DeleteSeatsByShowtime(ctx context.Context, showtimeID uint64) error

    // Bookings.
    InsertBooking(ctx context.Context, b *model.Booking) error
    LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
    // UpdateBooking persists status, cancellation, refund and seat list.
    UpdateBooking(ctx context.Context, b *model.Booking) error
    DeleteBooking(ctx context.Context, id uint64) error

    // Payment orders.
    InsertPaymentOrder(ctx context.Context, o *model.PaymentOrder) error
    UpdatePaymentOrder(ctx context.Context, o *model.PaymentOrder) error
}

// Store is the persistence entry point used by the services.
type Store interface {
    Reader
    // SearchShowtimes returns one page of showtimes and the total number
    // of matches.
    SearchShowtimes(ctx context.Context, q ShowtimeSearchQuery) ([]model.Showtime, int64, error)
    // WithTx runs fn inside a transaction.  A non-nil error from fn rolls
    // everything back and is returned unchanged.
    WithTx(ctx context.Context, fn func(tx Tx) error) error
}

var (
    _ Store = (*SQLStore)(nil)
    _ Tx    = (*sqlTx)(nil)
    _ Store = (*MemoryStore)(nil)
    _ Tx    = (*memTx)(nil)
)
