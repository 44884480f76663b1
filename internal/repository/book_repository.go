package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// BookRepo provides persistence for books and their category membership.
// Category membership lives in the book_categories join table keyed by
// category id, so the category deletion guard is a reference count query
// instead of a scan over every book.
type BookRepo struct{ db *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span several repositories (the checkout write set).
func (r *BookRepo) DB() *sql.DB { return r.db }

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBookExists        = errors.New("book already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const bookCols = `id, title, authors, description, price_cents, stock, currency,
	availability, rating_avg, rating_count, isbn, language, format, pages,
	publisher, created_at, updated_at`

// ListBooksParams carries the filters and paging for List.
type ListBooksParams struct {
	Page     int
	PageSize int
	Category string // filter by category name, empty = all
	Search   string // LIKE match against title and authors, empty = all
}

// Create inserts a book and its category links in one transaction and
// populates the generated ID and timestamps on b.
func (r *BookRepo) Create(ctx context.Context, b *model.Book, categoryIDs []uint64) error {
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
	res, err := tx.ExecContext(ctx,
		`INSERT INTO books (title, authors, description, price_cents, stock, currency,
		 availability, isbn, language, format, pages, publisher)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Title, joinAuthors(b.Authors), b.Description, b.PriceCents, b.Stock,
		b.Currency, b.Availability, b.ISBN, b.Language, b.Format, b.Pages, b.Publisher)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrBookExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if err := r.replaceCategoryLinksTx(ctx, tx, b.ID, categoryIDs); err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM books WHERE id=?", b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update rewrites all mutable book columns and replaces the category
// links. Returns ErrBookNotFound when no such book exists.
func (r *BookRepo) Update(ctx context.Context, b *model.Book, categoryIDs []uint64) error {
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
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET title=?, authors=?, description=?, price_cents=?, stock=?,
		 currency=?, availability=?, isbn=?, language=?, format=?, pages=?, publisher=?
		 WHERE id=?`,
		b.Title, joinAuthors(b.Authors), b.Description, b.PriceCents, b.Stock,
		b.Currency, b.Availability, b.ISBN, b.Language, b.Format, b.Pages,
		b.Publisher, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 for a no-op update, so confirm existence.
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM books WHERE id=?", b.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookNotFound
			}
			return err
		}
	}
	if err := r.replaceCategoryLinksTx(ctx, tx, b.ID, categoryIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a book and its category links. Existing orders keep
// their own item snapshots, so no order data is touched.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
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
	if _, err := tx.ExecContext(ctx, "DELETE FROM book_categories WHERE book_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a single book with its category names projected.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.Book, error) {
	var b model.Book
	var authors string
	err := r.db.QueryRowContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id=? LIMIT 1", id).Scan(
		&b.ID, &b.Title, &authors, &b.Description, &b.PriceCents, &b.Stock,
		&b.Currency, &b.Availability, &b.RatingAvg, &b.RatingCount, &b.ISBN,
		&b.Language, &b.Format, &b.Pages, &b.Publisher, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, ErrBookNotFound
		}
		return model.Book{}, err
	}
	b.Authors = splitAuthors(authors)
	cats, err := r.categoriesFor(ctx, []uint64{b.ID})
	if err != nil {
		return model.Book{}, err
	}
	b.Categories = cats[b.ID]
	if b.Categories == nil {
		b.Categories = []string{}
	}
	return b, nil
}

// List returns a page of books, newest first, honoring the optional
// category and search filters, plus the total matching count.
func (r *BookRepo) List(ctx context.Context, p ListBooksParams) ([]model.Book, int64, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if p.Category != "" {
		where = append(where,
			`id IN (SELECT bc.book_id FROM book_categories bc
			        JOIN categories c ON c.id = bc.category_id WHERE c.name = ?)`)
		args = append(args, p.Category)
	}
	if p.Search != "" {
		like := "%" + p.Search + "%"
		where = append(where, "(title LIKE ? OR authors LIKE ?)")
		args = append(args, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + bookCols + " FROM books" + cond +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, p.PageSize, (p.Page-1)*p.PageSize)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		var b model.Book
		var authors string
		if err := rows.Scan(
			&b.ID, &b.Title, &authors, &b.Description, &b.PriceCents, &b.Stock,
			&b.Currency, &b.Availability, &b.RatingAvg, &b.RatingCount, &b.ISBN,
			&b.Language, &b.Format, &b.Pages, &b.Publisher, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		b.Authors = splitAuthors(authors)
		b.Categories = []string{}
		books = append(books, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(books) == 0 {
		return books, total, nil
	}
	cats, err := r.categoriesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range books {
		if names, ok := cats[books[i].ID]; ok {
			books[i].Categories = names
		}
	}
	return books, total, nil
}

// GetByIDs loads a set of books keyed by id in one round trip, with
// category names projected. Missing ids are simply absent from the map.
func (r *BookRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Book, error) {
	out := make(map[uint64]model.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookCols+" FROM books WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make([]uint64, 0, len(ids))
	for rows.Next() {
		var b model.Book
		var authors string
		if err := rows.Scan(
			&b.ID, &b.Title, &authors, &b.Description, &b.PriceCents, &b.Stock,
			&b.Currency, &b.Availability, &b.RatingAvg, &b.RatingCount, &b.ISBN,
			&b.Language, &b.Format, &b.Pages, &b.Publisher, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		b.Authors = splitAuthors(authors)
		b.Categories = []string{}
		out[b.ID] = b
		found = append(found, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return out, nil
	}
	cats, err := r.categoriesFor(ctx, found)
	if err != nil {
		return nil, err
	}
	for id, names := range cats {
		b := out[id]
		b.Categories = names
		out[id] = b
	}
	return out, nil
}

// OrderLine is the slice of a book the checkout needs: the snapshot
// fields and the current stock for the fast-path check.
type OrderLine struct {
	ID         uint64
	Title      string
	PriceCents int64
	Stock      int64
}

// GetLineTx reads the snapshot fields of a book inside the checkout
// transaction. Returns ErrBookNotFound when the id does not exist.
func (r *BookRepo) GetLineTx(ctx context.Context, tx *sql.Tx, id uint64) (OrderLine, error) {
	var l OrderLine
	err := tx.QueryRowContext(ctx,
		"SELECT id, title, price_cents, stock FROM books WHERE id=? LIMIT 1", id).
		Scan(&l.ID, &l.Title, &l.PriceCents, &l.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OrderLine{}, ErrBookNotFound
		}
		return OrderLine{}, err
	}
	return l, nil
}

// DecrementStockTx atomically decrements stock by qty, guarded so stock
// can never go negative. It returns ErrInsufficientStock when the guard
// rejects the update, which also covers a concurrent checkout draining
// the stock between the caller's read and this write. Rolling back the
// surrounding transaction undoes every prior decrement, keeping the
// checkout all-or-nothing.
func (r *BookRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?", qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// replaceCategoryLinksTx rewrites the book's category links. It verifies
// every referenced category exists so a book can never point at a
// category id that was deleted concurrently.
func (r *BookRepo) replaceCategoryLinksTx(ctx context.Context, tx *sql.Tx, bookID uint64, categoryIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM book_categories WHERE book_id=?", bookID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(categoryIDs)), ",")
	args := make([]interface{}, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		args = append(args, id)
	}
	var found int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE id IN ("+placeholders+")", args...).
		Scan(&found); err != nil {
		return err
	}
	if found != int64(len(categoryIDs)) {
		return ErrCategoryNotFound
	}
	q := "INSERT INTO book_categories (book_id, category_id) VALUES "
	insArgs := make([]interface{}, 0, len(categoryIDs)*2)
	for i, cid := range categoryIDs {
		if i > 0 {
			q += ","
		}
		q += "(?, ?)"
		insArgs = append(insArgs, bookID, cid)
	}
	_, err := tx.ExecContext(ctx, q, insArgs...)
	return err
}

// categoriesFor loads category names for a set of book ids in one query.
func (r *BookRepo) categoriesFor(ctx context.Context, bookIDs []uint64) (map[uint64][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookIDs)), ",")
	args := make([]interface{}, 0, len(bookIDs))
	for _, id := range bookIDs {
		args = append(args, id)
	}
	q := `SELECT bc.book_id, c.name FROM book_categories bc
	      JOIN categories c ON c.id = bc.category_id
	      WHERE bc.book_id IN (` + placeholders + `) ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]string)
	for rows.Next() {
		var id uint64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func joinAuthors(authors []string) string {
	trimmed := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			trimmed = append(trimmed, a)
		}
	}
	return strings.Join(trimmed, ", ")
}

func splitAuthors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
