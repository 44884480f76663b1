package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// OrderRepo provides persistence for orders and their line item
// snapshots. Orders are created only inside the checkout transaction;
// after that the line items are immutable and only the status and payment
// fields ever change.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition rejects a status change that is not a legal
	// successor of the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const orderCols = `id, user_id, subtotal_cents, tax_cents, shipping_cents, total_cents,
	status, payment_method, payment_status, transaction_id,
	ship_street, ship_city, ship_state, ship_zip, ship_country, created_at, updated_at`

// CreateTx inserts the order row within the checkout transaction and
// populates the generated ID and timestamps on o. The caller commits or
// rolls back.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, subtotal_cents, tax_cents, shipping_cents, total_cents,
		 status, payment_method, payment_status,
		 ship_street, ship_city, ship_state, ship_zip, ship_country)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.UserID, o.SubtotalCents, o.TaxCents, o.ShippingCents, o.TotalCents,
		o.Status, o.PaymentMethod, o.PaymentStatus,
		o.ShippingAddr.Street, o.ShippingAddr.City, o.ShippingAddr.State,
		o.ShippingAddr.ZipCode, o.ShippingAddr.Country)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM orders WHERE id=?", o.ID).
		Scan(&o.CreatedAt, &o.UpdatedAt)
}

// CreateItemsBulkTx inserts all line item snapshots in a single statement.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, orderID uint64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	q := "INSERT INTO order_items (order_id, book_id, title, price_cents, quantity) VALUES "
	args := make([]interface{}, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, ?, ?)"
		args = append(args, orderID, it.BookID, it.Title, it.PriceCents, it.Quantity)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// GetByIDForUser returns a single order with its items, but only when it
// belongs to userID. A missing order and another user's order are both
// sql.ErrNoRows so existence is never disclosed.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE id=? AND user_id=? LIMIT 1", orderID, userID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns a page of the user's own orders, newest first, with
// items populated, plus the user's total order count.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAll returns a page over every order for the admin back-office.
func (r *OrderRepo) ListAll(ctx context.Context, page, pageSize int) ([]*model.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderCols+" FROM orders ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves an order to the next status, enforcing the legal
// transition table. The read and write run in one transaction with the
// row locked so two admins cannot race past the check.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID uint64, next string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id=? FOR UPDATE", orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return err
	}
	if !model.CanTransition(current, next) {
		return ErrInvalidTransition
	}
	if _, err := tx.ExecContext(ctx, "UPDATE orders SET status=? WHERE id=?", next, orderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MarkPaid records payment for an order. No money moves here; the method
// only stores the transaction id handed in by the caller. Only orders
// with payment still PENDING can be marked.
func (r *OrderRepo) MarkPaid(ctx context.Context, orderID uint64, transactionID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET payment_status=?, transaction_id=? WHERE id=? AND payment_status=?",
		model.PaymentPaid, transactionID, orderID, model.PaymentPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id=?", orderID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		return ErrConflict
	}
	return nil
}

// attachItems loads the line items for all given orders in one query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Order, len(orders))
	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Items = []model.OrderItem{}
		index[o.ID] = o
		ids = append(ids, o.ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT order_id, book_id, title, price_cents, quantity FROM order_items
	      WHERE order_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY order_id, id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var oid uint64
		var it model.OrderItem
		if err := rows.Scan(&oid, &it.BookID, &it.Title, &it.PriceCents, &it.Quantity); err != nil {
			return err
		}
		if o, ok := index[oid]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func collectOrders(rows *sql.Rows) ([]*model.Order, error) {
	defer rows.Close()
	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type orderScanner interface{ Scan(dest ...interface{}) error }

func scanOrder(s orderScanner) (*model.Order, error) {
	var o model.Order
	var txn sql.NullString
	err := s.Scan(&o.ID, &o.UserID, &o.SubtotalCents, &o.TaxCents, &o.ShippingCents,
		&o.TotalCents, &o.Status, &o.PaymentMethod, &o.PaymentStatus, &txn,
		&o.ShippingAddr.Street, &o.ShippingAddr.City, &o.ShippingAddr.State,
		&o.ShippingAddr.ZipCode, &o.ShippingAddr.Country, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.TransactionID = txn.String
	return &o, nil
}
