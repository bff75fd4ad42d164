package repository

import (
    "context"
    "sort"
    "strings"
    "time"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// ShowtimeSearchQuery defines filters and pagination for browsing
// showtimes.  Zero ids mean "any".
type ShowtimeSearchQuery struct {
    MovieID    uint64
    TheaterID  uint64
    ScreenID   uint64
    Status     string
    TimeFilter string    // "upcoming" (default) or "any"
    Now        time.Time // reference time for "upcoming"
    Page       int       // 1-based
    PageSize   int
}

// Normalize clamps paging to page >= 1 and 1 <= page size <= 100.
func (q *ShowtimeSearchQuery) Normalize() {
    if q.Page < 1 {
        q.Page = 1
    }
    if q.PageSize < 1 {
        q.PageSize = 20
    }
    if q.PageSize > 100 {
        q.PageSize = 100
    }
    q.TimeFilter = strings.ToLower(q.TimeFilter)
    if q.TimeFilter != "any" {
        q.TimeFilter = "upcoming"
    }
}

// Search returns one page of showtimes ordered by start time plus the
// total number of matches.
func (r *ShowtimeRepo) Search(ctx context.Context, q ShowtimeSearchQuery) ([]model.Showtime, int64, error) {
    q.Normalize()
    where := []string{}
    args := []any{}

    if q.TimeFilter == "upcoming" {
        where = append(where, "starts_at >= ?")
        args = append(args, dbTime(q.Now))
    }
    if q.MovieID != 0 {
        where = append(where, "movie_id = ?")
        args = append(args, q.MovieID)
    }
    if q.TheaterID != 0 {
        where = append(where, "theater_id = ?")
        args = append(args, q.TheaterID)
    }
    if q.ScreenID != 0 {
        where = append(where, "screen_id = ?")
        args = append(args, q.ScreenID)
    }
    if q.Status != "" {
        where = append(where, "status = ?")
        args = append(args, strings.ToUpper(q.Status))
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM showtimes WHERE `+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    dataSQL := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE ` + cond + `
        ORDER BY starts_at ASC, id ASC
        LIMIT ? OFFSET ?`
    argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]model.Showtime, 0, q.PageSize)
    for rows.Next() {
        st, err := scanShowtime(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *st)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}

func (d *memData) searchShowtimes(q ShowtimeSearchQuery) ([]model.Showtime, int64) {
    q.Normalize()
    var match []model.Showtime
    for _, st := range d.showtimes {
        switch {
        case q.TimeFilter == "upcoming" && st.StartsAt.Before(q.Now):
        case q.MovieID != 0 && st.MovieID != q.MovieID:
        case q.TheaterID != 0 && st.TheaterID != q.TheaterID:
        case q.ScreenID != 0 && st.ScreenID != q.ScreenID:
        case q.Status != "" && !strings.EqualFold(st.Status, q.Status):
        default:
            match = append(match, st)
        }
    }
    sort.Slice(match, func(i, j int) bool {
        if match[i].StartsAt.Equal(match[j].StartsAt) {
            return match[i].ID < match[j].ID
        }
        return match[i].StartsAt.Before(match[j].StartsAt)
    })
    total := int64(len(match))
    start := (q.Page - 1) * q.PageSize
    if start >= len(match) {
        return []model.Showtime{}, total
    }
    end := start + q.PageSize
    if end > len(match) {
        end = len(match)
    }
    return match[start:end], total
}

// SearchShowtimes pages through showtimes outside any transaction.
func (s *SQLStore) SearchShowtimes(ctx context.Context, q ShowtimeSearchQuery) ([]model.Showtime, int64, error) {
    return s.Showtimes.Search(ctx, q)
}

// SearchShowtimes pages through showtimes in memory.
func (s *MemoryStore) SearchShowtimes(ctx context.Context, q ShowtimeSearchQuery) ([]model.Showtime, int64, error) {
    d, done := s.read()
    defer done()
    out, total := d.searchShowtimes(q)
    return out, total, nil
}
