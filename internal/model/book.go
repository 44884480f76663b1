package model

import "time"

// Availability describes a book's disposition in the catalog, independent
// of its numeric stock (a book can be COMING_SOON with zero stock without
// being "sold out").
const (
	AvailabilityInStock    = "IN_STOCK"
	AvailabilityOutOfStock = "OUT_OF_STOCK"
	AvailabilityPreOrder   = "PRE_ORDER"
	AvailabilityComingSoon = "COMING_SOON"
)

// ValidAvailability reports whether s is a known availability value.
func ValidAvailability(s string) bool {
	switch s {
	case AvailabilityInStock, AvailabilityOutOfStock, AvailabilityPreOrder, AvailabilityComingSoon:
		return true
	}
	return false
}

// Book mirrors the `books` table. Price and stock are never negative;
// both invariants are enforced at write time in the repository and the
// handlers. Authors are stored as a comma-separated text column and split
// at the edges. Category membership lives in the book_categories join
// table and is projected as a list of names for clients.
//
// RatingAvg/RatingCount are maintained transactionally by the review
// repository whenever a review for the book is created, updated or deleted.
type Book struct {
	ID           uint64    // books.id
	Title        string    // books.title
	Authors      []string  // books.authors (CSV column)
	Description  string    // books.description
	PriceCents   int64     // books.price_cents (>= 0)
	Stock        int64     // books.stock (>= 0)
	Currency     string    // books.currency (ISO 4217 code)
	Availability string    // books.availability
	RatingAvg    float64   // books.rating_avg
	RatingCount  int64     // books.rating_count
	ISBN         string    // books.isbn
	Language     string    // books.language
	Format       string    // books.format (hardcover, paperback, ebook...)
	Pages        int       // books.pages
	Publisher    string    // books.publisher
	Categories   []string  // projected from book_categories join
	CreatedAt    time.Time // books.created_at
	UpdatedAt    time.Time // books.updated_at
}

// Category mirrors the `categories` table. Name is unique. A category
// cannot be deleted while any book references it through book_categories.
type Category struct {
	ID          uint64    // categories.id
	Name        string    // categories.name
	Description string    // categories.description
	CreatedAt   time.Time // categories.created_at
	UpdatedAt   time.Time // categories.updated_at
}
