package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

// BookHandler serves the public catalog endpoints and the admin book
// CRUD. Admin gating happens in the router via RequireRole.
type BookHandler struct {
	Books      *repository.BookRepo
	Categories *repository.CategoryRepo
}

func NewBookHandler(books *repository.BookRepo, categories *repository.CategoryRepo) *BookHandler {
	if books == nil || categories == nil {
		panic("nil repository passed to NewBookHandler")
	}
	return &BookHandler{Books: books, Categories: categories}
}

// bookReq is the admin payload for creating or updating a book.
// Categories are referenced by id so a rename never detaches books.
type bookReq struct {
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Description  string   `json:"description"`
	PriceCents   int64    `json:"price_cents"`
	Stock        int64    `json:"stock"`
	Currency     string   `json:"currency"`
	Availability string   `json:"availability"`
	ISBN         string   `json:"isbn"`
	Language     string   `json:"language"`
	Format       string   `json:"format"`
	Pages        int      `json:"pages"`
	Publisher    string   `json:"publisher"`
	CategoryIDs  []uint64 `json:"category_ids"`
}

type bookResp struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Authors      []string  `json:"authors"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents"`
	Stock        int64     `json:"stock"`
	Currency     string    `json:"currency"`
	Availability string    `json:"availability"`
	RatingAvg    float64   `json:"rating_avg"`
	RatingCount  int64     `json:"rating_count"`
	ISBN         string    `json:"isbn"`
	Language     string    `json:"language"`
	Format       string    `json:"format"`
	Pages        int       `json:"pages"`
	Publisher    string    `json:"publisher"`
	Categories   []string  `json:"categories"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toBookResp(b model.Book) bookResp {
	return bookResp{
		ID: b.ID, Title: b.Title, Authors: b.Authors, Description: b.Description,
		PriceCents: b.PriceCents, Stock: b.Stock, Currency: b.Currency,
		Availability: b.Availability, RatingAvg: b.RatingAvg, RatingCount: b.RatingCount,
		ISBN: b.ISBN, Language: b.Language, Format: b.Format, Pages: b.Pages,
		Publisher: b.Publisher, Categories: b.Categories,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

// validate checks the request and normalizes defaults. It returns a
// client-facing message when the payload is unusable.
func (r *bookReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title required"
	}
	authors := r.Authors[:0]
	for _, a := range r.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	r.Authors = authors
	if len(r.Authors) == 0 {
		return "at least one author required"
	}
	if strings.TrimSpace(r.Description) == "" {
		return "description required"
	}
	if r.PriceCents < 0 {
		return "price_cents must not be negative"
	}
	if r.Stock < 0 {
		return "stock must not be negative"
	}
	if r.Pages < 0 {
		return "pages must not be negative"
	}
	if r.Currency == "" {
		r.Currency = "INR"
	}
	if r.Availability == "" {
		r.Availability = model.AvailabilityInStock
	}
	if !model.ValidAvailability(r.Availability) {
		return "invalid availability"
	}
	return ""
}

func (r *bookReq) toModel() model.Book {
	return model.Book{
		Title: r.Title, Authors: r.Authors, Description: r.Description,
		PriceCents: r.PriceCents, Stock: r.Stock, Currency: r.Currency,
		Availability: r.Availability, ISBN: r.ISBN, Language: r.Language,
		Format: r.Format, Pages: r.Pages, Publisher: r.Publisher,
	}
}

// ListBooks handles GET /v1/books. Public, paginated, newest first, with
// optional ?category= and ?search= filters.
func (h *BookHandler) ListBooks(c echo.Context) error {
	page, pageSize := pageParams(c)
	params := repository.ListBooksParams{
		Page:     page,
		PageSize: pageSize,
		Category: strings.TrimSpace(c.QueryParam("category")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
	}
	books, total, err := h.Books.List(c.Request().Context(), params)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]bookResp, 0, len(books))
	for _, b := range books {
		items = append(items, toBookResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetBook handles GET /v1/books/:id.
func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	b, err := h.Books.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toBookResp(b)})
}

// ListCategories handles GET /v1/books/meta/categories. Public; returns
// every category for storefront filters.
func (h *BookHandler) ListCategories(c echo.Context) error {
	cats, err := h.Categories.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	type catResp struct {
		ID          uint64 `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	items := make([]catResp, 0, len(cats))
	for _, cat := range cats {
		items = append(items, catResp{ID: cat.ID, Name: cat.Name, Description: cat.Description})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateBook handles POST /v1/books (admin).
func (h *BookHandler) CreateBook(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	b := req.toModel()
	if err := h.Books.Create(c.Request().Context(), &b, req.CategoryIDs); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category id"})
		}
		if errors.Is(err, repository.ErrBookExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "isbn already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create book failed"})
	}
	created, err := h.Books.GetByID(c.Request().Context(), b.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load book failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": toBookResp(created)})
}

// UpdateBook handles PUT /v1/books/:id (admin).
func (h *BookHandler) UpdateBook(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	b := req.toModel()
	b.ID = id
	if err := h.Books.Update(c.Request().Context(), &b, req.CategoryIDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		case errors.Is(err, repository.ErrCategoryNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category id"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update book failed"})
	}
	updated, err := h.Books.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load book failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toBookResp(updated)})
}

// DeleteBook handles DELETE /v1/books/:id (admin). Orders keep their own
// line item snapshots, so deleting a book never rewrites order history.
func (h *BookHandler) DeleteBook(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	if err := h.Books.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete book failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
