package model

import "time"

// Limits on review content, enforced at the handler boundary.
const (
	ReviewTitleMax = 100
	ReviewBodyMax  = 1000
)

// Review mirrors the `reviews` table. The (book_id, user_id) pair is
// unique: one review per user per book. A review is mutated or deleted
// only by its owning user.
type Review struct {
	ID        uint64    // reviews.id
	BookID    uint64    // reviews.book_id
	UserID    uint64    // reviews.user_id
	Rating    int       // reviews.rating (1..5)
	Title     string    // reviews.title
	Body      string    // reviews.body
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}
