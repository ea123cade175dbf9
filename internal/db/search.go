package db

import (
	"context"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

// SearchAdmin runs the three admin search-bar lookups, each capped at market.SearchPerKind.
func (s *Store) SearchAdmin(ctx context.Context, q string) ([]models.Profile, []models.Book, []models.Order, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	like := "%" + q + "%"

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+profileCols+` FROM profiles
		WHERE full_name ILIKE $1 OR email ILIKE $1
		ORDER BY full_name LIMIT $2`, like, market.SearchPerKind)
	if err != nil {
		return nil, nil, nil, err
	}
	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			_ = rows.Close()
			return nil, nil, nil, err
		}
		profiles = append(profiles, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	rows, err = s.DB.QueryContext(ctx, `
		SELECT id, seller_id, title, author, created_at FROM books
		WHERE title ILIKE $1 OR author ILIKE $1
		ORDER BY title LIMIT $2`, like, market.SearchPerKind)
	if err != nil {
		return nil, nil, nil, err
	}
	books := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.SellerID, &b.Title, &b.Author, &b.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, nil, nil, err
		}
		books = append(books, b)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	rows, err = s.DB.QueryContext(ctx, orderQuery+`
		WHERE o.id::text LIKE LOWER($1) || '%' OR p.email ILIKE $2
		ORDER BY o.created_at DESC LIMIT $3`, q, like, market.SearchPerKind)
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() { _ = rows.Close() }()
	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, nil, nil, err
		}
		orders = append(orders, o)
	}
	return profiles, books, orders, rows.Err()
}
