package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const teacherQuery = `
	SELECT t.id, t.user_id, t.department_id, d.code, t.matricule, t.grade, t.specialty,
	       u.first_name, u.last_name, u.email
	FROM teachers t
	JOIN users u ON u.id = t.user_id
	JOIN departments d ON d.id = t.department_id`

func scanTeacher(row scanner) (models.Teacher, error) {
	var t models.Teacher
	err := row.Scan(&t.ID, &t.UserID, &t.DepartmentID, &t.DepartmentCode, &t.Matricule, &t.Grade, &t.Specialty,
		&t.FirstName, &t.LastName, &t.Email)
	return t, err
}

// ListTeachers filters by department (0 = all) and a name/email/matricule substring.
func (s *Store) ListTeachers(ctx context.Context, departmentID int64, search string) ([]models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := teacherQuery + ` WHERE TRUE`
	var args []any
	if departmentID != 0 {
		args = append(args, departmentID)
		q += fmt.Sprintf(" AND t.department_id = $%d", len(args))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		q += fmt.Sprintf(" AND (u.last_name ILIKE $%d OR u.first_name ILIKE $%d OR u.email ILIKE $%d OR t.matricule ILIKE $%d)", n, n, n, n)
	}
	q += ` ORDER BY u.last_name, u.first_name, t.id`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TeacherByID(ctx context.Context, id int64) (models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	t, err := scanTeacher(s.DB.QueryRowContext(ctx, teacherQuery+` WHERE t.id = $1`, id))
	return t, notFound(err)
}

func (s *Store) TeacherByUserID(ctx context.Context, userID int64) (models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	t, err := scanTeacher(s.DB.QueryRowContext(ctx, teacherQuery+` WHERE t.user_id = $1`, userID))
	return t, notFound(err)
}

func (s *Store) TeacherByMatricule(ctx context.Context, matricule string) (models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	t, err := scanTeacher(s.DB.QueryRowContext(ctx, teacherQuery+` WHERE t.matricule = $1`, strings.TrimSpace(matricule)))
	return t, notFound(err)
}

func (s *Store) TeacherByEmail(ctx context.Context, email string) (models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	t, err := scanTeacher(s.DB.QueryRowContext(ctx, teacherQuery+` WHERE u.email = LOWER($1)`, strings.TrimSpace(email)))
	return t, notFound(err)
}

// CreateTeacher inserts the user account and the teacher profile together.
func (s *Store) CreateTeacher(ctx context.Context, t models.Teacher, passwordHash string) (models.Teacher, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		u, err := insertUser(ctx, tx, models.User{
			Email: t.Email, PasswordHash: passwordHash, FirstName: t.FirstName, LastName: t.LastName, Role: models.RoleTeacher,
		})
		if err != nil {
			return err
		}
		t.UserID, t.Email = u.ID, u.Email
		err = tx.QueryRowContext(ctx, `
			INSERT INTO teachers (user_id, department_id, matricule, grade, specialty)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			t.UserID, t.DepartmentID, strings.TrimSpace(t.Matricule), t.Grade, strings.TrimSpace(t.Specialty),
		).Scan(&t.ID)
		return mapWriteErr(err)
	})
	if err != nil {
		return models.Teacher{}, err
	}
	return t, nil
}

func (s *Store) UpdateTeacher(ctx context.Context, t models.Teacher) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		err := tx.QueryRowContext(ctx, `
			UPDATE teachers SET department_id = $2, matricule = $3, grade = $4, specialty = $5
			WHERE id = $1 RETURNING user_id`,
			t.ID, t.DepartmentID, strings.TrimSpace(t.Matricule), t.Grade, strings.TrimSpace(t.Specialty),
		).Scan(&userID)
		if err != nil {
			return mapWriteErr(notFound(err))
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET first_name = $2, last_name = $3, email = LOWER($4) WHERE id = $1`,
			userID, strings.TrimSpace(t.FirstName), strings.TrimSpace(t.LastName), strings.TrimSpace(t.Email))
		return mapWriteErr(err)
	})
}

// DeleteTeacher removes the account; it fails with ErrConflict while the teacher
// supervises students or sits on a jury.
func (s *Store) DeleteTeacher(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		if err := tx.QueryRowContext(ctx, `SELECT user_id FROM teachers WHERE id = $1`, id).Scan(&userID); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
			return mapWriteErr(err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		return mapWriteErr(err)
	})
}
