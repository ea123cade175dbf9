package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const walletQuery = `
	SELECT w.id, w.profile_id, p.full_name, w.order_id, w.type, w.status, w.amount, w.note, w.created_at, w.processed_at
	FROM wallet_transactions w
	JOIN profiles p ON p.id = w.profile_id`

func scanWalletTx(row scanner) (models.WalletTransaction, error) {
	var w models.WalletTransaction
	err := row.Scan(&w.ID, &w.ProfileID, &w.ProfileName, &w.OrderID, &w.Type, &w.Status, &w.Amount, &w.Note, &w.CreatedAt, &w.ProcessedAt)
	return w, err
}

func (s *Store) queryWallet(ctx context.Context, q string, args ...any) ([]models.WalletTransaction, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.WalletTransaction{}
	for rows.Next() {
		w, err := scanWalletTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RequestWithdrawal debits the balance and records a pending withdrawal atomically.
// The conditional debit fails with ErrInsufficientFunds when the balance is too low.
func (s *Store) RequestWithdrawal(ctx context.Context, profileID uuid.UUID, amount int64) (models.WalletTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.WalletTransaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE profiles SET wallet_balance = wallet_balance - $2
			WHERE id = $1 AND wallet_balance >= $2`, profileID, amount)
		if err != nil {
			return err
		}
		if affected(res) == 0 {
			var one int
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = $1`, profileID).Scan(&one); err != nil {
				return notFound(err)
			}
			return ErrInsufficientFunds
		}
		var id uuid.UUID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO wallet_transactions (profile_id, type, status, amount)
			VALUES ($1, 'withdrawal', 'pending', $2) RETURNING id`, profileID, amount).Scan(&id); err != nil {
			return err
		}
		out, err = scanWalletTx(tx.QueryRowContext(ctx, walletQuery+` WHERE w.id = $1`, id))
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	return out, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, status models.WalletTxStatus) ([]models.WalletTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := walletQuery + ` WHERE w.type = 'withdrawal'`
	var args []any
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND w.status = $%d", len(args))
	}
	return s.queryWallet(ctx, q+` ORDER BY w.created_at DESC`, args...)
}

func (s *Store) WalletHistory(ctx context.Context, profileID uuid.UUID) ([]models.WalletTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.queryWallet(ctx, walletQuery+` WHERE w.profile_id = $1 ORDER BY w.created_at DESC`, profileID)
}

// CompleteWithdrawal marks a pending withdrawal as paid out. The balance was already
// debited at request time.
func (s *Store) CompleteWithdrawal(ctx context.Context, id uuid.UUID) (models.WalletTransaction, error) {
	return s.closeWithdrawal(ctx, id, models.WalletCompleted, nil)
}

// RejectWithdrawal refuses a pending withdrawal and refunds its amount.
func (s *Store) RejectWithdrawal(ctx context.Context, id uuid.UUID, note string) (models.WalletTransaction, error) {
	return s.closeWithdrawal(ctx, id, models.WalletRejected, &note)
}

func (s *Store) closeWithdrawal(ctx context.Context, id uuid.UUID, to models.WalletTxStatus, note *string) (models.WalletTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.WalletTransaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			profileID uuid.UUID
			amount    int64
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE wallet_transactions
			SET status = $2, note = COALESCE($3, note), processed_at = now()
			WHERE id = $1 AND type = 'withdrawal' AND status = 'pending'
			RETURNING profile_id, amount`, id, to, note).Scan(&profileID, &amount)
		if errors.Is(err, sql.ErrNoRows) {
			var st models.WalletTxStatus
			if err := tx.QueryRowContext(ctx,
				`SELECT status FROM wallet_transactions WHERE id = $1 AND type = 'withdrawal'`, id).Scan(&st); err != nil {
				return notFound(err)
			}
			return fmt.Errorf("%w: retrait déjà %s", ErrConflict, st)
		}
		if err != nil {
			return err
		}
		if to == models.WalletRejected {
			if _, err := tx.ExecContext(ctx,
				`UPDATE profiles SET wallet_balance = wallet_balance + $2 WHERE id = $1`, profileID, amount); err != nil {
				return err
			}
		}
		out, err = scanWalletTx(tx.QueryRowContext(ctx, walletQuery+` WHERE w.id = $1`, id))
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	return out, nil
}
