package db

import (
	"context"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func (s *Store) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var st models.DashboardStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM profiles WHERE role = 'seller'),
			(SELECT COUNT(*) FROM listings WHERE status = 'pending'),
			(SELECT COUNT(*) FROM listings WHERE status = 'active'),
			(SELECT COUNT(*) FROM orders WHERE status = 'pending'),
			(SELECT COUNT(*) FROM orders WHERE status = 'paid'),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = 'paid'),
			(SELECT COUNT(*) FROM wallet_transactions WHERE type = 'withdrawal' AND status = 'pending')`,
	).Scan(&st.Users, &st.Sellers, &st.PendingListings, &st.ActiveListings,
		&st.OrdersPending, &st.OrdersPaid, &st.Revenue, &st.PendingWithdrawals)
	return st, err
}
