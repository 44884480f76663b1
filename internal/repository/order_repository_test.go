package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id=\\? FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DELIVERED"))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), 7, "PROCESSING")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	// No UPDATE was expected, so a stray write would have failed above.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusLegalTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id=\\? FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec("UPDATE orders SET status=\\? WHERE id=\\?").
		WithArgs("PROCESSING", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), 7, "PROCESSING")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id=\\? FOR UPDATE").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), 99, "PROCESSING")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The line item insert carries the frozen snapshot fields, so later book
// edits can never rewrite an existing order.
func TestCreateItemsBulkTxInsertsSnapshots(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items \\(order_id, book_id, title, price_cents, quantity\\)").
		WithArgs(
			uint64(55), uint64(1), "Clean Code", int64(45000), int64(2),
			uint64(55), uint64(2), "Domain-Driven Design", int64(60000), int64(1),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.CreateItemsBulkTx(context.Background(), tx, 55, []model.OrderItem{
		{BookID: 1, Title: "Clean Code", PriceCents: 45000, Quantity: 2},
		{BookID: 2, Title: "Domain-Driven Design", PriceCents: 60000, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepo(db)

	// The guarded UPDATE touches nothing because payment is already PAID.
	mock.ExpectExec("UPDATE orders SET payment_status=\\?, transaction_id=\\?").
		WithArgs("PAID", "txn-1", uint64(5), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM orders WHERE id=\\?").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := repo.MarkPaid(context.Background(), 5, "txn-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
