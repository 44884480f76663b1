package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// CategoryRepo persists catalog categories.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category name already exists")
	// ErrCategoryInUse blocks deletion while any book still references
	// the category through book_categories.
	ErrCategoryInUse = errors.New("category referenced by books")
)

// Create inserts a category and returns its ID. Names are unique.
func (r *CategoryRepo) Create(ctx context.Context, name, description string) (uint64, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, description) VALUES (?,?)", name, description)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrCategoryExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update renames a category or changes its description.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name=?, description=? WHERE id=?",
		strings.TrimSpace(name), description, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrCategoryExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM categories WHERE id=?", id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a category. The delete and its reference-count guard run
// in one transaction so a book link created in between cannot orphan.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
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
	var refs int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM book_categories WHERE category_id=?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrCategoryInUse
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM categories WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrCategoryNotFound
	}
	return c, err
}

// List returns all categories ordered by name. The catalog carries a few
// dozen categories at most, so no pagination here.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cats := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
