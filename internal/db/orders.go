package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/market"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const orderQuery = `
	SELECT o.id, o.buyer_id, p.full_name, p.email, o.status, o.total_amount,
	       o.payment_method, o.payment_ref, o.created_at, o.paid_at
	FROM orders o
	JOIN profiles p ON p.id = o.buyer_id`

func scanOrder(row scanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.BuyerEmail, &o.Status, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentRef, &o.CreatedAt, &o.PaidAt)
	return o, err
}

// CreateOrder prices the lines against locked listings, decrements physical stock and
// inserts the order with its items, all in one transaction.
func (s *Store) CreateOrder(ctx context.Context, buyerID uuid.UUID, lines []market.OrderLine) (models.Order, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.Order
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ListingID)
		}
		listings := map[uuid.UUID]models.ListingView{}
		for _, id := range ids {
			v, err := scanListingView(tx.QueryRowContext(ctx, listingViewQuery+` WHERE l.id = $1 FOR UPDATE OF l`, id))
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			listings[id] = v
		}

		items, total, err := market.PriceOrder(lines, listings)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (buyer_id, status, total_amount)
			VALUES ($1, 'pending', $2)
			RETURNING id, buyer_id, status, total_amount, created_at`,
			buyerID, total,
		).Scan(&out.ID, &out.BuyerID, &out.Status, &out.TotalAmount, &out.CreatedAt)
		if err != nil {
			return mapWriteErr(err)
		}

		for i := range items {
			it := &items[i]
			if it.Kind == models.ListingPhysical {
				res, err := tx.ExecContext(ctx, `
					UPDATE listings SET stock = stock - $2, updated_at = now()
					WHERE id = $1 AND stock IS NOT NULL AND stock >= $2`, it.ListingID, it.Quantity)
				if err != nil {
					return err
				}
				if affected(res) == 0 {
					return fmt.Errorf("%w: stock insuffisant pour %q", market.ErrOutOfStock, it.BookTitle)
				}
			}
			it.OrderID = out.ID
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, listing_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				it.OrderID, it.ListingID, it.Quantity, it.UnitPrice,
			).Scan(&it.ID); err != nil {
				return err
			}
		}
		out.Items = items
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return out, nil
}

// ListOrders filters by status and by an id prefix or buyer name/email substring.
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, search string, limit, offset int) ([]models.Order, int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	where := ` WHERE TRUE`
	var args []any
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, strings.ToLower(search)+"%", "%"+search+"%")
		where += fmt.Sprintf(" AND (o.id::text LIKE $%d OR p.email ILIKE $%d OR p.full_name ILIKE $%d)",
			len(args)-1, len(args), len(args))
	}

	var total int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders o JOIN profiles p ON p.id = o.buyer_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.QueryContext(ctx, orderQuery+where+
		fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (s *Store) OrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, orderQuery+` WHERE o.buyer_id = $1 ORDER BY o.created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOrder returns the order with its items.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	o, err := scanOrder(s.DB.QueryRowContext(ctx, orderQuery+` WHERE o.id = $1`, id))
	if err != nil {
		return models.Order{}, notFound(err)
	}
	o.Items, err = orderItems(ctx, s.DB, id)
	if err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func orderItems(ctx context.Context, q queryer, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.listing_id, oi.quantity, oi.unit_price, l.kind, b.title, b.seller_id
		FROM order_items oi
		JOIN listings l ON l.id = oi.listing_id
		JOIN books b ON b.id = l.book_id
		WHERE oi.order_id = $1
		ORDER BY b.title, l.kind`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ListingID, &it.Quantity, &it.UnitPrice, &it.Kind, &it.BookTitle, &it.SellerID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// orderState distinguishes a missing order from one in the wrong status after a
// conditional update touched no row.
func orderState(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var st models.OrderStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&st)
	if err != nil {
		return notFound(err)
	}
	return fmt.Errorf("%w: commande déjà %s", ErrConflict, st)
}

// MarkOrderPaid moves a pending order to paid and credits every seller once. The status
// guard and the unique (order_id, profile_id) sale index make a repeated call a no-op that
// returns ErrConflict.
func (s *Store) MarkOrderPaid(ctx context.Context, id uuid.UUID, method string, ref *string) ([]market.Credit, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var credits []market.Credit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'paid', paid_at = now(), payment_method = $2, payment_ref = COALESCE($3, payment_ref)
			WHERE id = $1 AND status = 'pending'`, id, method, ref)
		if err != nil {
			return err
		}
		if affected(res) == 0 {
			return orderState(ctx, tx, id)
		}

		items, err := orderItems(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, c := range market.SellerCredits(items) {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO wallet_transactions (profile_id, order_id, type, status, amount, processed_at)
				VALUES ($1, $2, 'sale', 'completed', $3, now())
				ON CONFLICT (order_id, profile_id) WHERE type = 'sale' DO NOTHING`,
				c.SellerID, id, c.Amount)
			if err != nil {
				return err
			}
			if affected(res) == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE profiles SET wallet_balance = wallet_balance + $2 WHERE id = $1`, c.SellerID, c.Amount); err != nil {
				return err
			}
			credits = append(credits, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credits, nil
}

// CancelOrder moves a pending order to cancelled and puts physical stock back.
func (s *Store) CancelOrder(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, id)
		if err != nil {
			return err
		}
		if affected(res) == 0 {
			return orderState(ctx, tx, id)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE listings l SET stock = l.stock + oi.quantity, updated_at = now()
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.listing_id = l.id AND l.kind = 'physical' AND l.stock IS NOT NULL`, id)
		return err
	})
}

// SetPaymentRef records the payment provider reference of a pending order.
func (s *Store) SetPaymentRef(ctx context.Context, id uuid.UUID, method, ref string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET payment_method = $2, payment_ref = $3
		WHERE id = $1 AND status = 'pending'`, id, method, ref)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrConflict
	}
	return nil
}
