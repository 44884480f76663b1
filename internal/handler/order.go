package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/config"
	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/queue"
	"github.com/bookhaven/bookstore-api/internal/repository"
	queue_publisher "github.com/bookhaven/bookstore-api/internal/service"
)

// OrderHandler implements checkout and the customer's own order views.
// Checkout runs as one database transaction: every stock decrement either
// lands or the whole order is rolled back.
type OrderHandler struct {
	Cfg    config.Config
	Orders *repository.OrderRepo
	Books  *repository.BookRepo
	Users  *repository.UserRepo
}

func NewOrderHandler(cfg config.Config, orders *repository.OrderRepo, books *repository.BookRepo, users *repository.UserRepo) *OrderHandler {
	if orders == nil || books == nil || users == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Cfg: cfg, Orders: orders, Books: books, Users: users}
}

type orderLineReq struct {
	BookID   uint64 `json:"book_id"`
	Quantity int64  `json:"quantity"`
}

type placeOrderReq struct {
	Items           []orderLineReq `json:"items"`
	PaymentMethod   string         `json:"payment_method"`
	ShippingAddress *model.Address `json:"shipping_address"`
}

// orderItemResp is a line item snapshot, expanded with the current book
// record when the book still exists. Book is null for deleted books; the
// snapshot fields stand on their own either way.
type orderItemResp struct {
	BookID     uint64    `json:"book_id"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int64     `json:"quantity"`
	Book       *bookResp `json:"book,omitempty"`
}

type orderResp struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	Items         []orderItemResp `json:"items"`
	SubtotalCents int64           `json:"subtotal_cents"`
	TaxCents      int64           `json:"tax_cents"`
	ShippingCents int64           `json:"shipping_cents"`
	TotalCents    int64           `json:"total_cents"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ShippingAddr  model.Address   `json:"shipping_address"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// toOrderResp expands an order using a book lookup map; pass nil to skip
// expansion (snapshots only).
func toOrderResp(o *model.Order, books map[uint64]model.Book) orderResp {
	items := make([]orderItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		item := orderItemResp{
			BookID: it.BookID, Title: it.Title,
			PriceCents: it.PriceCents, Quantity: it.Quantity,
		}
		if b, ok := books[it.BookID]; ok {
			br := toBookResp(b)
			item.Book = &br
		}
		items = append(items, item)
	}
	return orderResp{
		ID: o.ID, UserID: o.UserID, Items: items,
		SubtotalCents: o.SubtotalCents, TaxCents: o.TaxCents,
		ShippingCents: o.ShippingCents, TotalCents: o.TotalCents,
		Status: o.Status, PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus, TransactionID: o.TransactionID,
		ShippingAddr: o.ShippingAddr, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

// expandOrders batch-loads the referenced books for a set of orders.
// Lookup failures degrade to snapshot-only responses rather than failing
// the request.
func (h *OrderHandler) expandOrders(ctx context.Context, orders ...*model.Order) map[uint64]model.Book {
	idset := make(map[uint64]struct{})
	for _, o := range orders {
		for _, it := range o.Items {
			idset[it.BookID] = struct{}{}
		}
	}
	ids := make([]uint64, 0, len(idset))
	for id := range idset {
		ids = append(ids, id)
	}
	books, err := h.Books.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("order: expand books failed: %v", err)
		return nil
	}
	return books
}

// PlaceOrder handles POST /v1/orders. Prices come from the database, the
// totals are computed server side, and all stock decrements plus the
// order insert share one transaction. Any line that cannot be satisfied
// aborts the whole checkout with nothing written.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order must contain at least one item"})
	}
	seen := make(map[uint64]struct{}, len(req.Items))
	for _, it := range req.Items {
		if it.BookID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id required on every item"})
		}
		if it.Quantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
		}
		if _, dup := seen[it.BookID]; dup {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate book in order items"})
		}
		seen[it.BookID] = struct{}{}
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Shipping address: the request body wins; when omitted the profile
	// address is the fallback. A partially filled address in the body is
	// rejected rather than silently patched.
	var addr model.Address
	if req.ShippingAddress != nil {
		addr = *req.ShippingAddress
		if !addr.Complete() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "complete shipping address required"})
		}
	} else {
		u, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		addr = u.Address
		if !addr.Complete() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "complete shipping address required"})
		}
	}

	tx, err := h.Books.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		bl, err := h.Books.GetLineTx(ctx, tx, line.BookID)
		if err != nil {
			if errors.Is(err, repository.ErrBookNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{
					"error": "book not found: " + strconv.FormatUint(line.BookID, 10),
				})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if err := h.Books.DecrementStockTx(ctx, tx, line.BookID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return c.JSON(http.StatusConflict, echo.Map{
					"error": "insufficient stock for \"" + bl.Title + "\"",
				})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		items = append(items, model.OrderItem{
			BookID:     bl.ID,
			Title:      bl.Title,
			PriceCents: bl.PriceCents,
			Quantity:   line.Quantity,
		})
	}

	totals := model.ComputeTotals(items, h.Cfg.ShippingCents)
	order := &model.Order{
		UserID:        uid,
		Items:         items,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		ShippingCents: totals.ShippingCents,
		TotalCents:    totals.TotalCents,
		Status:        model.OrderPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: model.PaymentPending,
		ShippingAddr:  addr,
	}
	if err := h.Orders.CreateTx(ctx, tx, order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	if err := h.Orders.CreateItemsBulkTx(ctx, tx, order.ID, items); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	committed = true

	// Best-effort event publish; a broker outage never fails a placed order.
	go func(o model.Order) {
		ev := queue.OrderPlacedEvent{
			OrderID:       o.ID,
			UserID:        o.UserID,
			SubtotalCents: o.SubtotalCents,
			TaxCents:      o.TaxCents,
			ShippingCents: o.ShippingCents,
			TotalCents:    o.TotalCents,
			PaymentMethod: o.PaymentMethod,
			ShipCity:      o.ShippingAddr.City,
			ShipCountry:   o.ShippingAddr.Country,
			PlacedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, it := range o.Items {
			ev.Items = append(ev.Items, queue.OrderEventItem{
				BookID: it.BookID, Title: it.Title,
				PriceCents: it.PriceCents, Quantity: it.Quantity,
			})
		}
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pcancel()
		_ = queue_publisher.PublishOrderPlaced(pctx, ev)
	}(*order)

	books := h.expandOrders(ctx, order)
	return c.JSON(http.StatusCreated, echo.Map{"order": toOrderResp(order, books)})
}

// ListOrders handles GET /v1/orders: the caller's own orders, newest
// first, paginated.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, pageSize := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, total, err := h.Orders.ListByUser(ctx, uid, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	books := h.expandOrders(ctx, orders...)
	items := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResp(o, books))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrder handles GET /v1/orders/:id. Another user's order and a missing
// order are the same 404 so order ids cannot be probed.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) || errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	books := h.expandOrders(ctx, order)
	return c.JSON(http.StatusOK, echo.Map{"order": toOrderResp(order, books)})
}
