package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
)

var showtimeCols = []string{"id", "movie_id", "theater_id", "screen_id", "screen_name", "starts_at", "ticket_price_cents",
    "total_seats", "available_seats", "status", "created_at", "updated_at"}

var seatCols = []string{"id", "showtime_id", "row_label", "seat_number", "seat_type", "price_cents",
    "is_booked", "is_held", "hold_expiry", "hold_session_id"}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewSQLStore(db), mock
}

func TestWithTxCommitsAndLocksShowtime(t *testing.T) {
    s, mock := newMockStore(t)
    start := time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FROM showtimes WHERE id = ? FOR UPDATE")).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows(showtimeCols).
            AddRow(7, 1, 2, 3, "Screen 1", start, 15000, 96, 90, "ACTIVE", start, start))
    mock.ExpectCommit()

    var got *model.Showtime
    err := s.WithTx(context.Background(), func(tx Tx) error {
        var err error
        got, err = tx.LockShowtime(context.Background(), 7)
        return err
    })
    require.NoError(t, err)
    assert.Equal(t, uint32(90), got.AvailableSeats)
    assert.Equal(t, "Screen 1", got.ScreenName)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
    s, mock := newMockStore(t)
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE seats SET is_held = 0, hold_expiry = NULL, hold_session_id = NULL")).
        WithArgs(uint64(4), "2025-03-01 12:00:00").
        WillReturnResult(sqlmock.NewResult(0, 3))
    mock.ExpectRollback()

    boom := errors.New("boom")
    err := s.WithTx(context.Background(), func(tx Tx) error {
        n, err := tx.ClearExpiredHolds(context.Background(), 4, now)
        require.NoError(t, err)
        assert.Equal(t, int64(3), n)
        return boom
    })
    assert.ErrorIs(t, err, boom)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxBeginFailure(t *testing.T) {
    s, mock := newMockStore(t)
    mock.ExpectBegin().WillReturnError(errors.New("no connection"))

    err := s.WithTx(context.Background(), func(tx Tx) error {
        t.Fatal("fn must not run")
        return nil
    })
    assert.ErrorContains(t, err, "begin tx")
}

func TestLockShowtimeNotFound(t *testing.T) {
    s, mock := newMockStore(t)
    mock.ExpectBegin()
    mock.ExpectQuery("FROM showtimes WHERE id = \\? FOR UPDATE").
        WithArgs(uint64(9)).
        WillReturnRows(sqlmock.NewRows(showtimeCols))
    mock.ExpectRollback()

    err := s.WithTx(context.Background(), func(tx Tx) error {
        _, err := tx.LockShowtime(context.Background(), 9)
        return err
    })
    assert.ErrorIs(t, err, ErrShowtimeNotFound)
    assert.ErrorIs(t, err, ErrNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSeatsInIDOrder(t *testing.T) {
    s, mock := newMockStore(t)
    expiry := time.Date(2025, 3, 1, 12, 10, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FROM seats WHERE id IN (?, ?) ORDER BY id FOR UPDATE")).
        WithArgs(uint64(2), uint64(1)).
        WillReturnRows(sqlmock.NewRows(seatCols).
            AddRow(1, 5, "A", 1, "REGULAR", 15000, false, true, expiry, "sess").
            AddRow(2, 5, "A", 2, "REGULAR", 15000, true, false, nil, nil))
    mock.ExpectCommit()

    var seats []model.Seat
    err := s.WithTx(context.Background(), func(tx Tx) error {
        var err error
        seats, err = tx.LockSeats(context.Background(), []uint64{2, 1})
        return err
    })
    require.NoError(t, err)
    require.Len(t, seats, 2)
    assert.True(t, seats[0].IsHeld)
    require.NotNil(t, seats[0].HoldSessionID)
    assert.Equal(t, "sess", *seats[0].HoldSessionID)
    assert.True(t, seats[0].HoldExpiry.Equal(expiry))
    assert.True(t, seats[1].IsBooked)
    assert.Nil(t, seats[1].HoldExpiry)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSeatsDuplicateIsConflict(t *testing.T) {
    s, mock := newMockStore(t)
    mock.ExpectBegin()
    mock.ExpectExec("INSERT INTO seats").
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
    mock.ExpectRollback()

    err := s.WithTx(context.Background(), func(tx Tx) error {
        return tx.InsertSeats(context.Background(), []model.Seat{
            {ShowtimeID: 5, RowLabel: "A", SeatNumber: 1, SeatType: model.SeatTypeRegular, PriceCents: 100},
        })
    })
    assert.ErrorIs(t, err, ErrConflict)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSeats(t *testing.T) {
    s, mock := newMockStore(t)
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    mock.ExpectBegin()
    mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
        WithArgs("2025-03-01 12:00:00", uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"total", "available"}).AddRow(96, 94))
    mock.ExpectCommit()

    err := s.WithTx(context.Background(), func(tx Tx) error {
        total, available, err := tx.CountSeats(context.Background(), 5, now)
        assert.Equal(t, uint32(96), total)
        assert.Equal(t, uint32(94), available)
        return err
    })
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchShowtimesSQL(t *testing.T) {
    s, mock := newMockStore(t)
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    start := now.Add(time.Hour)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM showtimes WHERE starts_at >= ? AND movie_id = ?")).
        WithArgs("2025-03-01 12:00:00", uint64(3)).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
    mock.ExpectQuery("ORDER BY starts_at ASC, id ASC\\s+LIMIT \\? OFFSET \\?").
        WithArgs("2025-03-01 12:00:00", uint64(3), 5, 10).
        WillReturnRows(sqlmock.NewRows(showtimeCols).
            AddRow(21, 3, 1, 1, "Screen 1", start, 100, 10, 10, "ACTIVE", now, now))

    out, total, err := s.SearchShowtimes(context.Background(), ShowtimeSearchQuery{MovieID: 3, Now: now, Page: 3, PageSize: 5})
    require.NoError(t, err)
    assert.Equal(t, int64(11), total)
    require.Len(t, out, 1)
    assert.Equal(t, uint64(21), out[0].ID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
    assert.Equal(t, "", placeholders(0))
    assert.Equal(t, "?", placeholders(1))
    assert.Equal(t, "?, ?, ?", placeholders(3))
}
