package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

// ReviewHandler implements the review surface: public listing per book,
// and create/update/delete for authenticated customers on their own
// reviews.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Books   *repository.BookRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo, books *repository.BookRepo) *ReviewHandler {
	if reviews == nil || books == nil {
		panic("nil repository passed to NewReviewHandler")
	}
	return &ReviewHandler{Reviews: reviews, Books: books}
}

type reviewReq struct {
	Rating int    `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (r *reviewReq) validate() string {
	if r.Rating < 1 || r.Rating > 5 {
		return "rating must be between 1 and 5"
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	// Limits count characters, not bytes, so multi-byte titles are not
	// cut short.
	if utf8.RuneCountInString(r.Title) > model.ReviewTitleMax {
		return "title too long (max 100 characters)"
	}
	if utf8.RuneCountInString(r.Body) > model.ReviewBodyMax {
		return "body too long (max 1000 characters)"
	}
	return ""
}

// Create handles POST /v1/reviews/:id where :id is the book. One review
// per user per book; the second attempt is a 409.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	rev := &model.Review{
		BookID: bookID,
		UserID: uid,
		Rating: req.Rating,
		Title:  req.Title,
		Body:   req.Body,
	}
	id, err := h.Reviews.Create(ctx, rev)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already reviewed this book"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Update handles PUT /v1/reviews/:id. Only the review's author may edit
// it; anyone else sees a 404.
func (h *ReviewHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Reviews.UpdateOwned(ctx, id, uid, req.Rating, req.Title, req.Body); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update review failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/reviews/:id with the same ownership rule as
// Update.
func (h *ReviewHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Reviews.DeleteOwned(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete review failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByBook handles GET /v1/reviews/book/:id. Public, newest first.
func (h *ReviewHandler) ListByBook(c echo.Context) error {
	bookID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	page, pageSize := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	reviews, total, err := h.Reviews.ListByBook(ctx, bookID, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     reviews,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
