package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/config"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

func newCheckoutHandler(t *testing.T) (*OrderHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewOrderHandler(config.Config{ShippingCents: 4900},
		repository.NewOrderRepo(db), repository.NewBookRepo(db), repository.NewUserRepo(db))
	return h, mock
}

func checkoutRequest(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(9))
	return c, rec
}

const checkoutAddr = `"shipping_address":{"street":"12 MG Road","city":"Bengaluru","state":"KA","zip_code":"560001","country":"IN"}`

// A line that cannot be satisfied aborts the whole checkout: the first
// book's decrement already ran inside the transaction, so the rollback
// must restore it and nothing may be written to orders.
func TestPlaceOrderInsufficientStockRollsBackEverything(t *testing.T) {
	h, mock := newCheckoutHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, title, price_cents, stock FROM books WHERE id=\\?").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price_cents", "stock"}).
			AddRow(1, "Clean Code", 45000, 10))
	mock.ExpectExec("UPDATE books SET stock = stock - \\? WHERE id = \\? AND stock >= \\?").
		WithArgs(int64(2), uint64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, title, price_cents, stock FROM books WHERE id=\\?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price_cents", "stock"}).
			AddRow(2, "Out of Print", 30000, 0))
	mock.ExpectExec("UPDATE books SET stock = stock - \\? WHERE id = \\? AND stock >= \\?").
		WithArgs(int64(1), uint64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := checkoutRequest(`{"items":[{"book_id":1,"quantity":2},{"book_id":2,"quantity":1}],` +
		`"payment_method":"UPI",` + checkoutAddr + `}`)
	require.NoError(t, h.PlaceOrder(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `insufficient stock for \"Out of Print\"`)
	// No order insert was expected; the rollback is the last statement.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderUnknownBookRollsBack(t *testing.T) {
	h, mock := newCheckoutHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, title, price_cents, stock FROM books WHERE id=\\?").
		WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := checkoutRequest(`{"items":[{"book_id":42,"quantity":1}],` +
		`"payment_method":"COD",` + checkoutAddr + `}`)
	require.NoError(t, h.PlaceOrder(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "book not found: 42")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Requests rejected by validation never open a transaction.
func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty items", `{"items":[],"payment_method":"UPI",` + checkoutAddr + `}`,
			"order must contain at least one item"},
		{"zero quantity", `{"items":[{"book_id":1,"quantity":0}],"payment_method":"UPI",` + checkoutAddr + `}`,
			"quantity must be at least 1"},
		{"duplicate line", `{"items":[{"book_id":1,"quantity":1},{"book_id":1,"quantity":2}],"payment_method":"UPI",` + checkoutAddr + `}`,
			"duplicate book in order items"},
		{"bad method", `{"items":[{"book_id":1,"quantity":1}],"payment_method":"CHEQUE",` + checkoutAddr + `}`,
			"invalid payment method"},
		{"partial address", `{"items":[{"book_id":1,"quantity":1}],"payment_method":"UPI",` +
			`"shipping_address":{"street":"12 MG Road","city":"Bengaluru"}}`,
			"complete shipping address required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, mock := newCheckoutHandler(t)
			c, rec := checkoutRequest(tc.body)
			require.NoError(t, h.PlaceOrder(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
