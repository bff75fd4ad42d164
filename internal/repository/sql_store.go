package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that read queries
// can run inside or outside a transaction.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on MySQL.  It owns one repository per table
// and hands a sqlTx to WithTx callbacks.
type SQLStore struct {
    db        *sql.DB
    Showtimes *ShowtimeRepo
    Screens   *ScreenRepo
    Seats     *SeatRepo
    Bookings  *BookingRepo
    Users     *UserRepo
    Payments  *PaymentOrderRepo
}

// NewSQLStore wires all repositories around db.
func NewSQLStore(db *sql.DB) *SQLStore {
    return &SQLStore{
        db:        db,
        Showtimes: NewShowtimeRepo(db),
        Screens:   NewScreenRepo(db),
        Seats:     NewSeatRepo(db),
        Bookings:  NewBookingRepo(db),
        Users:     NewUserRepo(db),
        Payments:  NewPaymentOrderRepo(db),
    }
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithTx begins a transaction, runs fn and commits.  Any error returned
// by fn, or a panic, rolls the transaction back.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit tx: %w", err)
    }
    committed = true
    return nil
}

func (s *SQLStore) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    return s.Showtimes.GetByID(ctx, id)
}

func (s *SQLStore) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
    return s.Screens.GetByID(ctx, id)
}

func (s *SQLStore) GetUser(ctx context.Context, id uint64) (*model.User, error) {
    return s.Users.GetByID(ctx, id)
}

func (s *SQLStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return s.Bookings.GetByID(ctx, id)
}

func (s *SQLStore) GetPaymentOrder(ctx context.Context, id string) (*model.PaymentOrder, error) {
    return s.Payments.GetByID(ctx, id)
}

func (s *SQLStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return s.Bookings.ListByUser(ctx, userID)
}

func (s *SQLStore) ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
    return s.Bookings.ListByStatus(ctx, status)
}

func (s *SQLStore) ListBookingIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error) {
    return s.Bookings.ListIDsByShowtime(ctx, showtimeID)
}

func (s *SQLStore) ListShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
    return s.Seats.ShowtimeIDsWithExpiredHolds(ctx, now)
}

func (s *SQLStore) ListShowtimesStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error) {
    return s.Showtimes.ListStartedBefore(ctx, cutoff)
}

// sqlTx adapts the repositories' ...Tx methods to the Tx interface.
type sqlTx struct {
    tx *sql.Tx
    s  *SQLStore
}

func (t *sqlTx) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    return t.s.Showtimes.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
    return t.s.Screens.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) GetUser(ctx context.Context, id uint64) (*model.User, error) {
    return t.s.Users.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return t.s.Bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) GetPaymentOrder(ctx context.Context, id string) (*model.PaymentOrder, error) {
    return t.s.Payments.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return t.s.Bookings.listByUser(ctx, t.tx, userID)
}

func (t *sqlTx) ListBookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
    return t.s.Bookings.listByStatus(ctx, t.tx, status)
}

func (t *sqlTx) ListBookingIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error) {
    return t.s.Bookings.listIDsByShowtime(ctx, t.tx, showtimeID)
}

func (t *sqlTx) ListShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
    return t.s.Seats.showtimeIDsWithExpiredHolds(ctx, t.tx, now)
}

func (t *sqlTx) ListShowtimesStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error) {
    return t.s.Showtimes.listStartedBefore(ctx, t.tx, cutoff)
}

func (t *sqlTx) LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    return t.s.Showtimes.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertShowtime(ctx context.Context, st *model.Showtime) error {
    return t.s.Showtimes.CreateTx(ctx, t.tx, st)
}

func (t *sqlTx) DeleteShowtime(ctx context.Context, id uint64) error {
    return t.s.Showtimes.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) SetSeatCounts(ctx context.Context, showtimeID uint64, total, available uint32) error {
    return t.s.Showtimes.SetSeatCountsTx(ctx, t.tx, showtimeID, total, available)
}

func (t *sqlTx) UpsertScreen(ctx context.Context, sc *model.Screen) error {
    return t.s.Screens.UpsertTx(ctx, t.tx, sc)
}

func (t *sqlTx) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    return t.s.Seats.ListByShowtimeTx(ctx, t.tx, showtimeID)
}

func (t *sqlTx) LockSeats(ctx context.Context, ids []uint64) ([]model.Seat, error) {
    return t.s.Seats.LockByIDsTx(ctx, t.tx, ids)
}

func (t *sqlTx) InsertSeats(ctx context.Context, seats []model.Seat) error {
    return t.s.Seats.CreateBulkTx(ctx, t.tx, seats)
}

func (t *sqlTx) UpdateSeats(ctx context.Context, seats []model.Seat) error {
    return t.s.Seats.UpdateStateTx(ctx, t.tx, seats)
}

func (t *sqlTx) ClearExpiredHolds(ctx context.Context, showtimeID uint64, now time.Time) (int64, error) {
    return t.s.Seats.ClearExpiredHoldsTx(ctx, t.tx, showtimeID, now)
}

func (t *sqlTx) CountSeats(ctx context.Context, showtimeID uint64, now time.Time) (uint32, uint32, error) {
    return t.s.Seats.CountTx(ctx, t.tx, showtimeID, now)
}

func (t *sqlTx) DeleteSeatsByShowtime(ctx context.Context, showtimeID uint64) error {
    return t.s.Seats.DeleteByShowtimeTx(ctx, t.tx, showtimeID)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    return t.s.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return t.s.Bookings.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
    return t.s.Bookings.UpdateTx(ctx, t.tx, b)
}

func (t *sqlTx) DeleteBooking(ctx context.Context, id uint64) error {
    return t.s.Bookings.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertPaymentOrder(ctx context.Context, o *model.PaymentOrder) error {
    return t.s.Payments.CreateTx(ctx, t.tx, o)
}

func (t *sqlTx) UpdatePaymentOrder(ctx context.Context, o *model.PaymentOrder) error {
    return t.s.Payments.UpdateTx(ctx, t.tx, o)
}

// dbTime formats t the way DATETIME columns are written (UTC, seconds).
func dbTime(t time.Time) string {
    return t.UTC().Format("2006-01-02 15:04:05")
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// uint64Args converts ids to a []any for variadic query arguments.
func uint64Args(ids []uint64) []any {
    args := make([]any, 0, len(ids))
    for _, id := range ids {
        args = append(args, id)
    }
    return args
}

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

// mapNoRows converts sql.ErrNoRows into notFound and leaves other errors
// untouched.
func mapNoRows(err, notFound error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return notFound
    }
    return err
}
