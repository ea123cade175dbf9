package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

// CreateBookWithListings inserts a book and its listings atomically: if any listing
// fails, no book row remains.
func (s *Store) CreateBookWithListings(ctx context.Context, b models.Book, listings []models.Listing) (models.Book, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO books (seller_id, title, author, description, cover_url, file_key)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			b.SellerID, strings.TrimSpace(b.Title), strings.TrimSpace(b.Author), b.Description, b.CoverURL, b.FileKey,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			return mapWriteErr(err)
		}

		b.Listings = make([]models.Listing, 0, len(listings))
		for _, l := range listings {
			l.BookID = b.ID
			if l.Status == "" {
				l.Status = models.ListingPending
			}
			err := tx.QueryRowContext(ctx, `
				INSERT INTO listings (book_id, kind, price, stock, status)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, created_at, updated_at`,
				l.BookID, l.Kind, l.Price, l.Stock, l.Status,
			).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
			if err != nil {
				return fmt.Errorf("listing %s: %w", l.Kind, mapWriteErr(err))
			}
			b.Listings = append(b.Listings, l)
		}
		return nil
	})
	if err != nil {
		return models.Book{}, err
	}
	return b, nil
}

// BooksBySeller returns the seller's books with their listings.
func (s *Store) BooksBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Book, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT b.id, b.seller_id, b.title, b.author, b.description, b.cover_url, b.file_key, b.created_at,
		       l.id, l.kind, l.price, l.stock, l.status, l.created_at, l.updated_at
		FROM books b
		LEFT JOIN listings l ON l.book_id = b.id
		WHERE b.seller_id = $1
		ORDER BY b.created_at DESC, l.kind`, sellerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Book{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			b  models.Book
			lt struct {
				ID                   uuid.NullUUID
				Kind, Status         sql.NullString
				Price                sql.NullInt64
				Stock                sql.NullInt32
				CreatedAt, UpdatedAt sql.NullTime
			}
		)
		if err := rows.Scan(&b.ID, &b.SellerID, &b.Title, &b.Author, &b.Description, &b.CoverURL, &b.FileKey, &b.CreatedAt,
			&lt.ID, &lt.Kind, &lt.Price, &lt.Stock, &lt.Status, &lt.CreatedAt, &lt.UpdatedAt); err != nil {
			return nil, err
		}
		i, ok := index[b.ID]
		if !ok {
			b.Listings = []models.Listing{}
			out = append(out, b)
			i = len(out) - 1
			index[b.ID] = i
		}
		if lt.ID.Valid {
			l := models.Listing{
				ID:        lt.ID.UUID,
				BookID:    b.ID,
				Kind:      models.ListingKind(lt.Kind.String),
				Price:     lt.Price.Int64,
				Status:    models.ListingStatus(lt.Status.String),
				CreatedAt: lt.CreatedAt.Time,
				UpdatedAt: lt.UpdatedAt.Time,
			}
			if lt.Stock.Valid {
				n := int(lt.Stock.Int32)
				l.Stock = &n
			}
			out[i].Listings = append(out[i].Listings, l)
		}
	}
	return out, rows.Err()
}

const listingViewQuery = `
	SELECT l.id, l.book_id, l.kind, l.price, l.stock, l.status, l.created_at, l.updated_at,
	       b.title, b.author, b.cover_url, b.seller_id, p.full_name
	FROM listings l
	JOIN books b ON b.id = l.book_id
	JOIN profiles p ON p.id = b.seller_id`

func scanListingView(row scanner) (models.ListingView, error) {
	var v models.ListingView
	err := row.Scan(&v.ID, &v.BookID, &v.Kind, &v.Price, &v.Stock, &v.Status, &v.CreatedAt, &v.UpdatedAt,
		&v.BookTitle, &v.BookAuthor, &v.CoverURL, &v.SellerID, &v.SellerName)
	return v, err
}

func queryListingViews(ctx context.Context, q queryer, query string, args ...any) ([]models.ListingView, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.ListingView{}
	for rows.Next() {
		v, err := scanListingView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListListings returns listings for the admin table; an empty status means all.
func (s *Store) ListListings(ctx context.Context, status models.ListingStatus, search string) ([]models.ListingView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := listingViewQuery + ` WHERE TRUE`
	var args []any
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND l.status = $%d", len(args))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		q += fmt.Sprintf(" AND (b.title ILIKE $%d OR b.author ILIKE $%d)", len(args), len(args))
	}
	q += ` ORDER BY l.created_at DESC`
	return queryListingViews(ctx, s.DB, q, args...)
}

// ListMarketplace is the public catalogue: active listings only.
func (s *Store) ListMarketplace(ctx context.Context) ([]models.ListingView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return queryListingViews(ctx, s.DB, listingViewQuery+` WHERE l.status = 'active' ORDER BY l.created_at DESC`)
}

func (s *Store) ListingByID(ctx context.Context, id uuid.UUID) (models.ListingView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	v, err := scanListingView(s.DB.QueryRowContext(ctx, listingViewQuery+` WHERE l.id = $1`, id))
	return v, notFound(err)
}

// SetListingStatus moves a listing from one status to another; a concurrent change of
// the current status makes it fail with ErrConflict.
func (s *Store) SetListingStatus(ctx context.Context, id uuid.UUID, from, to models.ListingStatus) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE listings SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrConflict
	}
	return nil
}
