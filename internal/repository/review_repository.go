package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// ReviewRepo persists book reviews and keeps the book's aggregate rating
// columns in sync. Every write runs in a transaction that recomputes
// rating_avg / rating_count on the reviewed book, so the displayed
// average always reflects the stored reviews.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

var (
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview enforces one review per user per book.
	ErrDuplicateReview = errors.New("review already exists for this book")
)

// Create inserts a review and returns its ID. A second review by the
// same user on the same book violates the (book_id, user_id) unique key
// and maps to ErrDuplicateReview.
func (r *ReviewRepo) Create(ctx context.Context, rev *model.Review) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (book_id, user_id, rating, title, body) VALUES (?,?,?,?,?)",
		rev.BookID, rev.UserID, rev.Rating, rev.Title, rev.Body)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateReview
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := recomputeRatingTx(ctx, tx, rev.BookID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// UpdateOwned modifies a review if and only if it belongs to userID.
// A review owned by someone else reports ErrReviewNotFound, the same as
// a missing one, so existence is not disclosed.
func (r *ReviewRepo) UpdateOwned(ctx context.Context, reviewID, userID uint64, rating int, title, body string) error {
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
	var bookID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT book_id FROM reviews WHERE id=? AND user_id=? FOR UPDATE",
		reviewID, userID).Scan(&bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE reviews SET rating=?, title=?, body=? WHERE id=?",
		rating, title, body, reviewID); err != nil {
		return err
	}
	if err := recomputeRatingTx(ctx, tx, bookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteOwned removes a review if it belongs to userID, with the same
// not-found semantics as UpdateOwned.
func (r *ReviewRepo) DeleteOwned(ctx context.Context, reviewID, userID uint64) error {
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
	var bookID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT book_id FROM reviews WHERE id=? AND user_id=? FOR UPDATE",
		reviewID, userID).Scan(&bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", reviewID); err != nil {
		return err
	}
	if err := recomputeRatingTx(ctx, tx, bookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReviewDetail is a review joined with its author's display name, shaped
// for the public listing on a book page.
type ReviewDetail struct {
	ID         uint64 `json:"id"`
	BookID     uint64 `json:"book_id"`
	UserID     uint64 `json:"user_id"`
	AuthorName string `json:"author_name"`
	Rating     int    `json:"rating"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
}

// ListByBook returns a page of a book's reviews, newest first, with the
// reviewer's name projected, plus the total review count for the book.
func (r *ReviewRepo) ListByBook(ctx context.Context, bookID uint64, page, pageSize int) ([]ReviewDetail, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE book_id=?", bookID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT rv.id, rv.book_id, rv.user_id, u.name, rv.rating, rv.title, rv.body, rv.created_at
	           FROM reviews rv
	           JOIN users u ON u.id = rv.user_id
	           WHERE rv.book_id = ?
	           ORDER BY rv.created_at DESC, rv.id DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, bookID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	details := make([]ReviewDetail, 0)
	for rows.Next() {
		var d ReviewDetail
		var created sql.NullTime
		if err := rows.Scan(&d.ID, &d.BookID, &d.UserID, &d.AuthorName,
			&d.Rating, &d.Title, &d.Body, &created); err != nil {
			return nil, 0, err
		}
		if created.Valid {
			d.CreatedAt = created.Time.UTC().Format(time.RFC3339)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// recomputeRatingTx rewrites the book's aggregate rating columns from the
// current review rows, inside the caller's transaction.
func recomputeRatingTx(ctx context.Context, tx *sql.Tx, bookID uint64) error {
	const q = `UPDATE books SET
	             rating_avg   = COALESCE((SELECT AVG(rating) FROM reviews WHERE book_id = ?), 0),
	             rating_count = (SELECT COUNT(*) FROM reviews WHERE book_id = ?)
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, bookID, bookID, bookID)
	return err
}
