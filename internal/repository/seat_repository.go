package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// SeatRepo encapsulates database operations for the seats of a showtime.
// A seat row carries its own hold columns (is_held, hold_expiry,
// hold_session_id) next to is_booked, so a single row lock covers every
// state the seat can be in.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, showtime_id, row_label, seat_number, seat_type, price_cents,
       is_booked, is_held, hold_expiry, hold_session_id`

func scanSeat(row interface{ Scan(...any) error }) (model.Seat, error) {
    var (
        s       model.Seat
        expiry  sql.NullTime
        session sql.NullString
    )
    if err := row.Scan(&s.ID, &s.ShowtimeID, &s.RowLabel, &s.SeatNumber, &s.SeatType, &s.PriceCents,
        &s.IsBooked, &s.IsHeld, &expiry, &session); err != nil {
        return model.Seat{}, err
    }
    if expiry.Valid {
        t := expiry.Time.UTC()
        s.HoldExpiry = &t
    }
    if session.Valid {
        v := session.String
        s.HoldSessionID = &v
    }
    return s, nil
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
    defer rows.Close()
    var out []model.Seat
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// ListByShowtimeTx returns all seats of a showtime ordered by row and
// number.  Seats are returned as stored; expired holds must be cleared
// beforehand with ClearExpiredHoldsTx.
func (r *SeatRepo) ListByShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) ([]model.Seat, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+seatColumns+` FROM seats WHERE showtime_id = ?
         ORDER BY CHAR_LENGTH(row_label), row_label, seat_number`, showtimeID)
    if err != nil {
        return nil, err
    }
    return scanSeats(rows)
}

// LockByIDsTx loads the given seats with SELECT ... FOR UPDATE in id
// order.  Ids that do not exist are missing from the result.
func (r *SeatRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Seat, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, uint64Args(ids)...)
    if err != nil {
        return nil, err
    }
    return scanSeats(rows)
}

// CreateBulkTx inserts multiple seats in one statement.  The generated ids
// are not written back to the passed structures.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    // Build the INSERT with placeholders for each seat.  Each row
    // requires six values; state columns use their DB defaults.
    query := `INSERT INTO seats (showtime_id, row_label, seat_number, seat_type, price_cents, is_booked) VALUES `
    args := make([]any, 0, len(seats)*6)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, s.ShowtimeID, s.RowLabel, s.SeatNumber, s.SeatType, s.PriceCents, s.IsBooked)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        if isDuplicateKey(err) {
            return fmt.Errorf("seat map already materialized: %w", ErrConflict)
        }
        return err
    }
    return nil
}

// UpdateStateTx writes the booked and hold columns of each seat.  The
// seats must have been locked with LockByIDsTx in the same transaction.
func (r *SeatRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    stmt, err := tx.PrepareContext(ctx,
        `UPDATE seats SET is_booked = ?, is_held = ?, hold_expiry = ?, hold_session_id = ? WHERE id = ?`)
    if err != nil {
        return err
    }
    defer stmt.Close()
    for _, s := range seats {
        var expiry, session any
        if s.HoldExpiry != nil {
            expiry = dbTime(*s.HoldExpiry)
        }
        if s.HoldSessionID != nil {
            session = *s.HoldSessionID
        }
        if _, err := stmt.ExecContext(ctx, s.IsBooked, s.IsHeld, expiry, session, s.ID); err != nil {
            return fmt.Errorf("update seat %d: %w", s.ID, err)
        }
    }
    return nil
}

// DeleteByShowtimeTx removes every seat of a showtime.
func (r *SeatRepo) DeleteByShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE showtime_id = ?`, showtimeID)
    return err
}
