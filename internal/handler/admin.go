package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

// AdminHandler groups the back-office endpoints: dashboard stats, the
// all-orders view, order status and payment updates, the user list, and
// category management. Every route behind it requires the ADMIN role.
type AdminHandler struct {
	Stats      *repository.StatsRepo
	Orders     *repository.OrderRepo
	Users      *repository.UserRepo
	Categories *repository.CategoryRepo
}

func NewAdminHandler(stats *repository.StatsRepo, orders *repository.OrderRepo,
	users *repository.UserRepo, categories *repository.CategoryRepo) *AdminHandler {
	if stats == nil || orders == nil || users == nil || categories == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Stats: stats, Orders: orders, Users: users, Categories: categories}
}

// DashboardStats handles GET /v1/admin/stats.
func (h *AdminHandler) DashboardStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Stats.Admin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, s)
}

// PublicStats handles GET /v1/public/stats, the unauthenticated
// storefront counters.
func (h *AdminHandler) PublicStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Stats.Public(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, s)
}

// ListOrders handles GET /v1/admin/orders: every order, newest first.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	page, pageSize := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	orders, total, err := h.Orders.ListAll(ctx, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResp(o, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles PUT /v1/admin/orders/:id/status. Only legal
// successors of the current status are accepted; terminal orders reject
// every change.
func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !model.ValidOrderStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown order status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.UpdateStatus(ctx, id, req.Status); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "illegal status transition"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// MarkOrderPaid handles POST /v1/admin/orders/:id/paid. No gateway is
// involved; the endpoint records a generated transaction id against an
// order whose payment is still pending.
func (h *AdminHandler) MarkOrderPaid(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txnID := uuid.NewString()
	if err := h.Orders.MarkPaid(ctx, id, txnID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment already recorded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "mark paid failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "payment_status": model.PaymentPaid, "transaction_id": txnID})
}

// ListUsers handles GET /v1/admin/users. Password hashes never leave the
// repository layer.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, pageSize := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, total, err := h.Users.List(ctx, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]userPart, 0, len(users))
	for _, u := range users {
		items = append(items, toUserPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type categoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategory handles POST /v1/admin/categories.
func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Categories.Create(ctx, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create category failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "name": req.Name, "description": req.Description})
}

// UpdateCategory handles PUT /v1/admin/categories/:id. Books reference
// categories by id, so a rename shows up on every linked book at once.
func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Update(ctx, id, req.Name, req.Description); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		case errors.Is(err, repository.ErrCategoryExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update category failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "name": req.Name, "description": req.Description})
}

// DeleteCategory handles DELETE /v1/admin/categories/:id. A category
// still referenced by any book is a 409; detach the books first.
func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		case errors.Is(err, repository.ErrCategoryInUse):
			return c.JSON(http.StatusConflict, echo.Map{"error": "category still referenced by books"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete category failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
