package repository

import (
	"context"
	"database/sql"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// StatsRepo aggregates the counters shown on the admin dashboard and the
// public landing page.
type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// AdminStats is the admin dashboard summary. Revenue counts every order
// that was not cancelled; cancelled orders never shipped, so their totals
// are not money earned.
type AdminStats struct {
	Users         int64 `json:"users"`
	Books         int64 `json:"books"`
	Orders        int64 `json:"orders"`
	PendingOrders int64 `json:"pending_orders"`
	RevenueCents  int64 `json:"revenue_cents"`
}

// PublicStats is the unauthenticated storefront summary.
type PublicStats struct {
	Books      int64 `json:"books"`
	Categories int64 `json:"categories"`
}

// Admin gathers the admin dashboard counters.
func (r *StatsRepo) Admin(ctx context.Context) (AdminStats, error) {
	var s AdminStats
	steps := []struct {
		query string
		args  []interface{}
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM users", nil, &s.Users},
		{"SELECT COUNT(*) FROM books", nil, &s.Books},
		{"SELECT COUNT(*) FROM orders", nil, &s.Orders},
		{"SELECT COUNT(*) FROM orders WHERE status=?", []interface{}{model.OrderPending}, &s.PendingOrders},
		{"SELECT COALESCE(SUM(total_cents),0) FROM orders WHERE status<>?", []interface{}{model.OrderCancelled}, &s.RevenueCents},
	}
	for _, st := range steps {
		if err := r.db.QueryRowContext(ctx, st.query, st.args...).Scan(st.dest); err != nil {
			return AdminStats{}, err
		}
	}
	return s, nil
}

// Public gathers the public storefront counters.
func (r *StatsRepo) Public(ctx context.Context) (PublicStats, error) {
	var s PublicStats
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&s.Books); err != nil {
		return PublicStats{}, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&s.Categories); err != nil {
		return PublicStats{}, err
	}
	return s, nil
}
