package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.  The seat counters on a
// showtime row are only written through SetSeatCountsTx, inside the same
// transaction as the seat changes they summarise.
type ShowtimeRepo struct {
    db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
    return &ShowtimeRepo{db: db}
}

const showtimeColumns = `id, movie_id, theater_id, screen_id, screen_name, starts_at, ticket_price_cents,
       total_seats, available_seats, status, created_at, updated_at`

func scanShowtime(row interface{ Scan(...any) error }) (*model.Showtime, error) {
    var st model.Showtime
    err := row.Scan(&st.ID, &st.MovieID, &st.TheaterID, &st.ScreenID, &st.ScreenName, &st.StartsAt,
        &st.TicketPriceCents, &st.TotalSeats, &st.AvailableSeats, &st.Status, &st.CreatedAt, &st.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &st, nil
}

// GetByID retrieves a showtime by id.  It returns ErrShowtimeNotFound if
// there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
    return r.getByID(ctx, r.db, id, false)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
    return r.getByID(ctx, tx, id, false)
}

// LockTx reads the showtime row with SELECT ... FOR UPDATE.  Every seat
// mutation takes this lock first, which serialises writers of one
// showtime and fixes the lock order (showtime, then seats).
func (r *ShowtimeRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
    return r.getByID(ctx, tx, id, true)
}

func (r *ShowtimeRepo) getByID(ctx context.Context, q querier, id uint64, forUpdate bool) (*model.Showtime, error) {
    query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
    if forUpdate {
        query += ` FOR UPDATE`
    }
    st, err := scanShowtime(q.QueryRowContext(ctx, query, id))
    if err != nil {
        return nil, mapNoRows(err, ErrShowtimeNotFound)
    }
    return st, nil
}

// CreateTx inserts a new showtime and populates its generated id and
// timestamps.  The caller must commit or roll back the transaction.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, st *model.Showtime) error {
    if st.Status == "" {
        st.Status = model.ShowtimeActive
    }
    const q = `INSERT INTO showtimes (movie_id, theater_id, screen_id, screen_name, starts_at, ticket_price_cents,
                                      total_seats, available_seats, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, st.MovieID, st.TheaterID, st.ScreenID, st.ScreenName, dbTime(st.StartsAt),
        st.TicketPriceCents, st.TotalSeats, st.AvailableSeats, st.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    created, err := r.getByID(ctx, tx, uint64(id), false)
    if err != nil {
        return err
    }
    *st = *created
    return nil
}

// SetSeatCountsTx writes total_seats and available_seats.
func (r *ShowtimeRepo) SetSeatCountsTx(ctx context.Context, tx *sql.Tx, id uint64, total, available uint32) error {
    const q = `UPDATE showtimes SET total_seats = ?, available_seats = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    res, err := tx.ExecContext(ctx, q, total, available, id)
    if err != nil {
        return err
    }
    // MySQL reports 0 affected rows when values did not change, so only a
    // missing row is an error here.
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        if _, err := r.getByID(ctx, tx, id, false); err != nil {
            return err
        }
    }
    return nil
}

// DeleteTx removes a showtime.  Seats and bookings must have been removed
// by the caller in the same transaction.
func (r *ShowtimeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrShowtimeNotFound
    }
    return nil
}

// ListStartedBefore returns showtimes starting before cutoff, oldest first.
func (r *ShowtimeRepo) ListStartedBefore(ctx context.Context, cutoff time.Time) ([]model.Showtime, error) {
    return r.listStartedBefore(ctx, r.db, cutoff)
}

func (r *ShowtimeRepo) listStartedBefore(ctx context.Context, q querier, cutoff time.Time) ([]model.Showtime, error) {
    rows, err := q.QueryContext(ctx,
        `SELECT `+showtimeColumns+` FROM showtimes WHERE starts_at < ? ORDER BY starts_at, id`, dbTime(cutoff))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Showtime
    for rows.Next() {
        st, err := scanShowtime(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *st)
    }
    return out, rows.Err()
}
