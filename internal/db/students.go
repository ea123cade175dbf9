package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const studentQuery = `
	SELECT s.id, s.user_id, s.department_id, d.code, s.matricule, s.level, s.academic_year,
	       u.first_name, u.last_name, u.email
	FROM students s
	JOIN users u ON u.id = s.user_id
	JOIN departments d ON d.id = s.department_id`

func scanStudent(row scanner) (models.StudentProfile, error) {
	var st models.StudentProfile
	err := row.Scan(&st.ID, &st.UserID, &st.DepartmentID, &st.DepartmentCode, &st.Matricule, &st.Level, &st.AcademicYear,
		&st.FirstName, &st.LastName, &st.Email)
	return st, err
}

func (s *Store) ListStudents(ctx context.Context, departmentID int64, search string) ([]models.StudentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := studentQuery + ` WHERE TRUE`
	var args []any
	if departmentID != 0 {
		args = append(args, departmentID)
		q += fmt.Sprintf(" AND s.department_id = $%d", len(args))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		q += fmt.Sprintf(" AND (u.last_name ILIKE $%d OR u.first_name ILIKE $%d OR u.email ILIKE $%d OR s.matricule ILIKE $%d)", n, n, n, n)
	}
	q += ` ORDER BY u.last_name, u.first_name, s.id`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.StudentProfile{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) StudentByID(ctx context.Context, id int64) (models.StudentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	st, err := scanStudent(s.DB.QueryRowContext(ctx, studentQuery+` WHERE s.id = $1`, id))
	return st, notFound(err)
}

func (s *Store) StudentByUserID(ctx context.Context, userID int64) (models.StudentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	st, err := scanStudent(s.DB.QueryRowContext(ctx, studentQuery+` WHERE s.user_id = $1`, userID))
	return st, notFound(err)
}

func (s *Store) StudentByMatricule(ctx context.Context, matricule string) (models.StudentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	st, err := scanStudent(s.DB.QueryRowContext(ctx, studentQuery+` WHERE s.matricule = $1`, strings.TrimSpace(matricule)))
	return st, notFound(err)
}

func (s *Store) CreateStudent(ctx context.Context, st models.StudentProfile, passwordHash string) (models.StudentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		u, err := insertUser(ctx, tx, models.User{
			Email: st.Email, PasswordHash: passwordHash, FirstName: st.FirstName, LastName: st.LastName, Role: models.RoleStudent,
		})
		if err != nil {
			return err
		}
		st.UserID, st.Email = u.ID, u.Email
		err = tx.QueryRowContext(ctx, `
			INSERT INTO students (user_id, department_id, matricule, level, academic_year)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			st.UserID, st.DepartmentID, strings.TrimSpace(st.Matricule), strings.TrimSpace(st.Level), strings.TrimSpace(st.AcademicYear),
		).Scan(&st.ID)
		return mapWriteErr(err)
	})
	if err != nil {
		return models.StudentProfile{}, err
	}
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st models.StudentProfile) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		err := tx.QueryRowContext(ctx, `
			UPDATE students SET department_id = $2, matricule = $3, level = $4, academic_year = $5
			WHERE id = $1 RETURNING user_id`,
			st.ID, st.DepartmentID, strings.TrimSpace(st.Matricule), strings.TrimSpace(st.Level), strings.TrimSpace(st.AcademicYear),
		).Scan(&userID)
		if err != nil {
			return mapWriteErr(notFound(err))
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET first_name = $2, last_name = $3, email = LOWER($4) WHERE id = $1`,
			userID, strings.TrimSpace(st.FirstName), strings.TrimSpace(st.LastName), strings.TrimSpace(st.Email))
		return mapWriteErr(err)
	})
}

// DeleteStudent removes the account; themes, encadrement and jury cascade.
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = (SELECT user_id FROM students WHERE id = $1)`, id)
	if err != nil {
		return mapWriteErr(err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}
