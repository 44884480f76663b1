package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/utils"
)

// UserRepo persists application users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = "id, name, email, password_hash, role, street, city, state, zip_code, country, created_at, updated_at"

// Create inserts a user and returns its ID. The email is normalized to
// lower case before insertion; a duplicate maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile sets the user's name and postal address.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name string, addr model.Address) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, street=?, city=?, state=?, zip_code=?, country=? WHERE id=?",
		name, nullStr(addr.Street), nullStr(addr.City), nullStr(addr.State),
		nullStr(addr.ZipCode), nullStr(addr.Country), id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, newHash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", newHash, id)
	return err
}

// List returns a page of users, newest first, with the total row count.
// Password hashes are included in the model; callers must project them
// away before responding.
func (r *UserRepo) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) { return r.scanRow(row) }

func (r *UserRepo) scanRow(s rowScanner) (model.User, error) {
	var u model.User
	var street, city, state, zip, country sql.NullString
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&street, &city, &state, &zip, &country, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Address = model.Address{
		Street:  street.String,
		City:    city.String,
		State:   state.String,
		ZipCode: zip.String,
		Country: country.String,
	}
	return u, nil
}

// nullStr maps an empty string to SQL NULL so optional address columns
// stay NULL instead of collecting empty strings.
func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
