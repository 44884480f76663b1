package model

import "time"

// Roles assigned to users. Registration always produces USER; ADMIN
// accounts are seeded out of band.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column. The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address, stored lower-cased.
//	PasswordHash – bcrypt hashed password.
//	Role         – USER or ADMIN.
//	Address      – optional postal address for pre-filling checkout.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Address      Address   // users.street .. users.country (all nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Address is a postal address. On the user it is optional; on an order it
// is a required snapshot taken at checkout time.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Complete reports whether every address field is present. Checkout
// requires a complete shipping address.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.ZipCode != "" && a.Country != ""
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and carries expiry and revocation metadata so a
// user can hold several concurrent sessions, each revocable on its own.
// The plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
