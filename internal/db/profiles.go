package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const profileCols = `id, full_name, email, role, wallet_balance, password_hash, created_at`

func scanProfile(row scanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.WalletBalance, &p.PasswordHash, &p.CreatedAt)
	return p, err
}

func (s *Store) CreateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if p.Role == "" {
		p.Role = models.ProfileUser
	}
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (full_name, email, role, password_hash)
		VALUES ($1, LOWER($2), $3, $4)
		RETURNING `+profileCols,
		strings.TrimSpace(p.FullName), strings.TrimSpace(p.Email), p.Role, p.PasswordHash)
	out, err := scanProfile(row)
	if err != nil {
		return models.Profile{}, mapWriteErr(err)
	}
	return out, nil
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	p, err := scanProfile(s.DB.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE email = LOWER($1)`, strings.TrimSpace(email)))
	return p, notFound(err)
}

func (s *Store) ProfileByID(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	p, err := scanProfile(s.DB.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
	return p, notFound(err)
}

// ListProfiles filters by a name/email substring and an optional role, newest first.
func (s *Store) ListProfiles(ctx context.Context, search string, role models.ProfileRole, limit, offset int) ([]models.Profile, int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	where := ` WHERE TRUE`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}
	if role != "" {
		args = append(args, role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := `SELECT ` + profileCols + ` FROM profiles` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateProfileRole(ctx context.Context, id uuid.UUID, role models.ProfileRole) (models.Profile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	p, err := scanProfile(s.DB.QueryRowContext(ctx,
		`UPDATE profiles SET role = $2 WHERE id = $1 RETURNING `+profileCols, id, role))
	return p, notFound(err)
}
