package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// ScreenRepo persists screens and their seat layouts.  Screen ids are
// assigned by the catalog, so rows are upserted by id.
type ScreenRepo struct {
    db *sql.DB
}

// NewScreenRepo constructs a ScreenRepo.
func NewScreenRepo(db *sql.DB) *ScreenRepo { return &ScreenRepo{db: db} }

// GetByID returns the screen or ErrScreenNotFound.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
    return r.getByID(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a transaction.
func (r *ScreenRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Screen, error) {
    return r.getByID(ctx, tx, id)
}

func (r *ScreenRepo) getByID(ctx context.Context, q querier, id uint64) (*model.Screen, error) {
    var (
        sc     model.Screen
        layout []byte
    )
    err := q.QueryRowContext(ctx, `SELECT id, theater_id, name, layout FROM screens WHERE id = ?`, id).
        Scan(&sc.ID, &sc.TheaterID, &sc.Name, &layout)
    if err != nil {
        return nil, mapNoRows(err, ErrScreenNotFound)
    }
    if len(layout) > 0 && string(layout) != "null" {
        var l model.ScreenLayout
        if err := json.Unmarshal(layout, &l); err != nil {
            return nil, fmt.Errorf("decode layout of screen %d: %w", id, err)
        }
        sc.Layout = &l
    }
    return &sc, nil
}

// UpsertTx inserts the screen or replaces its name and layout.
func (r *ScreenRepo) UpsertTx(ctx context.Context, tx *sql.Tx, sc *model.Screen) error {
    var layout any
    if sc.Layout != nil {
        bs, err := json.Marshal(sc.Layout)
        if err != nil {
            return fmt.Errorf("encode layout: %w", err)
        }
        layout = string(bs)
    }
    _, err := tx.ExecContext(ctx,
        `INSERT INTO screens (id, theater_id, name, layout) VALUES (?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE theater_id = VALUES(theater_id), name = VALUES(name), layout = VALUES(layout)`,
        sc.ID, sc.TheaterID, sc.Name, layout)
    return err
}
