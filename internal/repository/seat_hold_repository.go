package repository

import (
    "context"
    "database/sql"
    "time"
)

// ClearExpiredHoldsTx removes holds on seats of the showtime whose
// hold_expiry is at or before now and returns the number of seats
// released.  now comes from the service clock, not UTC_TIMESTAMP().
func (r *SeatRepo) ClearExpiredHoldsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, now time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seats SET is_held = 0, hold_expiry = NULL, hold_session_id = NULL
         WHERE showtime_id = ? AND is_held = 1 AND is_booked = 0
           AND (hold_expiry IS NULL OR hold_expiry <= ?)`,
        showtimeID, dbTime(now),
    )
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// CountTx returns the number of seats of the showtime and how many of them
// are available at now: not booked, and either not held or held by a
// lapsed hold.
func (r *SeatRepo) CountTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, now time.Time) (uint32, uint32, error) {
    var total, available uint32
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*),
                COALESCE(SUM(CASE WHEN is_booked = 0 AND (is_held = 0 OR hold_expiry IS NULL OR hold_expiry <= ?)
                                  THEN 1 ELSE 0 END), 0)
         FROM seats WHERE showtime_id = ?`,
        dbTime(now), showtimeID,
    ).Scan(&total, &available)
    if err != nil {
        return 0, 0, err
    }
    return total, available, nil
}

// ShowtimeIDsWithExpiredHolds lists showtimes that own at least one lapsed
// hold.  The periodic sweeper uses it to find work without touching
// showtimes that have nothing to reclaim.
func (r *SeatRepo) ShowtimeIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
    return r.showtimeIDsWithExpiredHolds(ctx, r.db, now)
}

func (r *SeatRepo) showtimeIDsWithExpiredHolds(ctx context.Context, q querier, now time.Time) ([]uint64, error) {
    rows, err := q.QueryContext(ctx,
        `SELECT DISTINCT showtime_id FROM seats
         WHERE is_held = 1 AND (hold_expiry IS NULL OR hold_expiry <= ?)
         ORDER BY showtime_id`,
        dbTime(now),
    )
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
