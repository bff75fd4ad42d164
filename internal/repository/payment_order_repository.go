package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// PaymentOrderRepo stores gateway orders created before checkout.
type PaymentOrderRepo struct {
    db *sql.DB
}

// NewPaymentOrderRepo constructs a PaymentOrderRepo.
func NewPaymentOrderRepo(db *sql.DB) *PaymentOrderRepo { return &PaymentOrderRepo{db: db} }

// GetByID returns an order or ErrPaymentOrderNotFound.
func (r *PaymentOrderRepo) GetByID(ctx context.Context, id string) (*model.PaymentOrder, error) {
    return r.getByID(ctx, r.db, id)
}

// GetByIDTx locks and returns an order inside a transaction.
func (r *PaymentOrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.PaymentOrder, error) {
    return r.getByID(ctx, tx, id)
}

func (r *PaymentOrderRepo) getByID(ctx context.Context, q querier, id string) (*model.PaymentOrder, error) {
    query := `SELECT id, user_id, amount_cents, currency, receipt, status, booking_id, created_at
              FROM payment_orders WHERE id = ?`
    if _, inTx := q.(*sql.Tx); inTx {
        query += ` FOR UPDATE`
    }
    var (
        o         model.PaymentOrder
        bookingID sql.NullInt64
    )
    err := q.QueryRowContext(ctx, query, id).
        Scan(&o.ID, &o.UserID, &o.AmountCents, &o.Currency, &o.Receipt, &o.Status, &bookingID, &o.CreatedAt)
    if err != nil {
        return nil, mapNoRows(err, ErrPaymentOrderNotFound)
    }
    if bookingID.Valid {
        v := uint64(bookingID.Int64)
        o.BookingID = &v
    }
    return &o, nil
}

// CreateTx inserts a new order.
func (r *PaymentOrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.PaymentOrder) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO payment_orders (id, user_id, amount_cents, currency, receipt, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        o.ID, o.UserID, o.AmountCents, o.Currency, o.Receipt, o.Status, dbTime(o.CreatedAt))
    return err
}

// UpdateTx writes status and booking reference.
func (r *PaymentOrderRepo) UpdateTx(ctx context.Context, tx *sql.Tx, o *model.PaymentOrder) error {
    _, err := tx.ExecContext(ctx, `UPDATE payment_orders SET status = ?, booking_id = ? WHERE id = ?`,
        o.Status, o.BookingID, o.ID)
    return err
}
