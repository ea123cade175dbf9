package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const userCols = `id, email, password_hash, first_name, last_name, role, telegram_chat_id, is_active, created_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.TelegramChatID, &u.IsActive, &u.CreatedAt)
	return u, err
}

func insertUser(ctx context.Context, tx *sql.Tx, u models.User) (models.User, error) {
	out, err := scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, telegram_chat_id)
		VALUES (LOWER($1), $2, $3, $4, $5, $6)
		RETURNING `+userCols,
		strings.TrimSpace(u.Email), u.PasswordHash, strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), u.Role, u.TelegramChatID))
	if err != nil {
		return models.User{}, mapWriteErr(err)
	}
	return out, nil
}

// CreateUser inserts an account without a teacher or student profile (admins).
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = insertUser(ctx, tx, u)
		return err
	})
	return out, err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = LOWER($1)`, strings.TrimSpace(email)))
	return u, notFound(err)
}

func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

// SetTelegramChat links (or unlinks with nil) a Telegram chat for notifications.
func (s *Store) SetTelegramChat(ctx context.Context, userID int64, chatID *int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET telegram_chat_id = $2 WHERE id = $1`, userID, chatID)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetUserPassword(ctx context.Context, userID int64, hash string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}
