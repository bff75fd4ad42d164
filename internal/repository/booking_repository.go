package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo provides persistence for bookings and their ordered seat
// lists.  Seats of a booking live in booking_seats keyed by
// (booking_id, position) so the order chosen at checkout survives.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, showtime_id, total_amount_cents, ticket_price_snapshot_cents, screen_name,
       status, ticket_number, qr_code, payment_method, payment_ref, customer_name, customer_email,
       customer_phone, cancellation_reason, refund_amount_cents, refunded_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
    var (
        b          model.Booking
        paymentRef sql.NullString
        reason     sql.NullString
        refund     sql.NullInt64
        refundedAt sql.NullTime
    )
    err := row.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &b.TotalAmountCents, &b.TicketPriceSnapshotCents, &b.ScreenName,
        &b.Status, &b.TicketNumber, &b.QRCode, &b.PaymentMethod, &paymentRef, &b.CustomerName, &b.CustomerEmail,
        &b.CustomerPhone, &reason, &refund, &refundedAt, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return model.Booking{}, err
    }
    if paymentRef.Valid {
        v := paymentRef.String
        b.PaymentRef = &v
    }
    if reason.Valid {
        v := reason.String
        b.CancellationReason = &v
    }
    if refund.Valid {
        v := uint32(refund.Int64)
        b.RefundAmountCents = &v
    }
    if refundedAt.Valid {
        v := refundedAt.Time.UTC()
        b.RefundedAt = &v
    }
    return b, nil
}

// GetByID loads a booking and its seats.  It returns ErrBookingNotFound
// when there is no such booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    return r.getByID(ctx, r.db, id, false)
}

// GetByIDTx is GetByID inside a transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    return r.getByID(ctx, tx, id, false)
}

// LockTx loads a booking with SELECT ... FOR UPDATE.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    return r.getByID(ctx, tx, id, true)
}

func (r *BookingRepo) getByID(ctx context.Context, q querier, id uint64, forUpdate bool) (*model.Booking, error) {
    query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    if forUpdate {
        query += ` FOR UPDATE`
    }
    b, err := scanBooking(q.QueryRowContext(ctx, query, id))
    if err != nil {
        return nil, mapNoRows(err, ErrBookingNotFound)
    }
    list := []model.Booking{b}
    if err := r.loadSeats(ctx, q, list); err != nil {
        return nil, err
    }
    return &list[0], nil
}

// CreateTx inserts the booking row and its booking_seats rows, then reads
// the row back to populate id and timestamps.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (user_id, showtime_id, total_amount_cents, ticket_price_snapshot_cents, screen_name,
                                     status, ticket_number, qr_code, payment_method, payment_ref, customer_name,
                                     customer_email, customer_phone)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.TotalAmountCents, b.TicketPriceSnapshotCents,
        b.ScreenName, b.Status, b.TicketNumber, b.QRCode, b.PaymentMethod, b.PaymentRef, b.CustomerName,
        b.CustomerEmail, b.CustomerPhone)
    if err != nil {
        if isDuplicateKey(err) {
            return fmt.Errorf("ticket number %s: %w", b.TicketNumber, ErrConflict)
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if err := r.replaceSeatsTx(ctx, tx, b); err != nil {
        return err
    }
    created, err := r.getByID(ctx, tx, b.ID, false)
    if err != nil {
        return err
    }
    *b = *created
    return nil
}

// UpdateTx writes the mutable columns of a booking and replaces its seat
// list.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    var refund, refundedAt any
    if b.RefundAmountCents != nil {
        refund = *b.RefundAmountCents
    }
    if b.RefundedAt != nil {
        refundedAt = dbTime(*b.RefundedAt)
    }
    const q = `UPDATE bookings SET status = ?, total_amount_cents = ?, cancellation_reason = ?, refund_amount_cents = ?,
                                   refunded_at = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    // The row was locked by LockTx, so affected-row counts are not
    // checked (MySQL reports 0 for unchanged rows).
    if _, err := tx.ExecContext(ctx, q, b.Status, b.TotalAmountCents, b.CancellationReason, refund, refundedAt, b.ID); err != nil {
        return err
    }
    return r.replaceSeatsTx(ctx, tx, b)
}

// replaceSeatsTx rewrites booking_seats for the booking in the given order.
func (r *BookingRepo) replaceSeatsTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, b.ID); err != nil {
        return err
    }
    if len(b.SeatIDs) == 0 {
        return nil
    }
    query := `INSERT INTO booking_seats (booking_id, position, seat_id, seat_label) VALUES `
    args := make([]any, 0, len(b.SeatIDs)*4)
    for i, sid := range b.SeatIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        label := ""
        if i < len(b.SeatLabels) {
            label = b.SeatLabels[i]
        }
        args = append(args, b.ID, i, sid, label)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// DeleteTx removes a booking; booking_seats rows cascade.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrBookingNotFound
    }
    return nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return r.listByUser(ctx, r.db, userID)
}

func (r *BookingRepo) listByUser(ctx context.Context, q querier, userID uint64) ([]model.Booking, error) {
    return r.list(ctx, q, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListByStatus returns bookings in the given status, oldest first.
func (r *BookingRepo) ListByStatus(ctx context.Context, status string) ([]model.Booking, error) {
    return r.listByStatus(ctx, r.db, status)
}

func (r *BookingRepo) listByStatus(ctx context.Context, q querier, status string) ([]model.Booking, error) {
    return r.list(ctx, q, `SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at, id`, status)
}

// ListIDsByShowtime returns the ids of all bookings of a showtime.
func (r *BookingRepo) ListIDsByShowtime(ctx context.Context, showtimeID uint64) ([]uint64, error) {
    return r.listIDsByShowtime(ctx, r.db, showtimeID)
}

func (r *BookingRepo) listIDsByShowtime(ctx context.Context, q querier, showtimeID uint64) ([]uint64, error) {
    rows, err := q.QueryContext(ctx, `SELECT id FROM bookings WHERE showtime_id = ? ORDER BY id`, showtimeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

func (r *BookingRepo) list(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        out = append(out, b)
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := r.loadSeats(ctx, q, out); err != nil {
        return nil, err
    }
    return out, nil
}

// loadSeats fills SeatIDs and SeatLabels for every booking in one query.
func (r *BookingRepo) loadSeats(ctx context.Context, q querier, bookings []model.Booking) error {
    if len(bookings) == 0 {
        return nil
    }
    index := make(map[uint64]int, len(bookings))
    ids := make([]uint64, 0, len(bookings))
    for i, b := range bookings {
        index[b.ID] = i
        ids = append(ids, b.ID)
    }
    rows, err := q.QueryContext(ctx,
        `SELECT booking_id, seat_id, seat_label FROM booking_seats
         WHERE booking_id IN (`+placeholders(len(ids))+`) ORDER BY booking_id, position`,
        uint64Args(ids)...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var bookingID, seatID uint64
        var label string
        if err := rows.Scan(&bookingID, &seatID, &label); err != nil {
            return err
        }
        i := index[bookingID]
        bookings[i].SeatIDs = append(bookings[i].SeatIDs, seatID)
        bookings[i].SeatLabels = append(bookings[i].SeatLabels, label)
    }
    return rows.Err()
}
