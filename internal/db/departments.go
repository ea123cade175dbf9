package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const departmentQuery = `
	SELECT d.id, d.code, d.name, d.chief_teacher_id,
	       CASE WHEN u.id IS NULL THEN NULL ELSE u.last_name || ' ' || u.first_name END
	FROM departments d
	LEFT JOIN teachers t ON t.id = d.chief_teacher_id
	LEFT JOIN users u ON u.id = t.user_id`

func scanDepartment(row scanner) (models.Department, error) {
	var d models.Department
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.ChiefTeacherID, &d.ChiefName)
	return d, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, departmentQuery+` ORDER BY d.code`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DepartmentByID(ctx context.Context, id int64) (models.Department, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	d, err := scanDepartment(s.DB.QueryRowContext(ctx, departmentQuery+` WHERE d.id = $1`, id))
	return d, notFound(err)
}

// DepartmentByCode matches the code case-insensitively (import files).
func (s *Store) DepartmentByCode(ctx context.Context, code string) (models.Department, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	d, err := scanDepartment(s.DB.QueryRowContext(ctx, departmentQuery+` WHERE UPPER(d.code) = UPPER($1)`, strings.TrimSpace(code)))
	return d, notFound(err)
}

// DepartmentOfChief returns the department headed by the user, if any.
func (s *Store) DepartmentOfChief(ctx context.Context, userID int64) (models.Department, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	d, err := scanDepartment(s.DB.QueryRowContext(ctx, departmentQuery+` WHERE t.user_id = $1`, userID))
	return d, notFound(err)
}

func (s *Store) CreateDepartment(ctx context.Context, code, name string) (models.Department, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO departments (code, name) VALUES (UPPER($1), $2) RETURNING id`,
		strings.TrimSpace(code), strings.TrimSpace(name)).Scan(&id)
	if err != nil {
		return models.Department{}, mapWriteErr(err)
	}
	return models.Department{ID: id, Code: strings.ToUpper(strings.TrimSpace(code)), Name: strings.TrimSpace(name)}, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, id int64, code, name string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE departments SET code = UPPER($2), name = $3 WHERE id = $1`,
		id, strings.TrimSpace(code), strings.TrimSpace(name))
	if err != nil {
		return mapWriteErr(err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDepartment fails with ErrConflict while teachers or students still reference it.
func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return mapWriteErr(err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignChief makes teacherID head of the department. The previous chief goes back to
// the enseignant role, the new one becomes chef_departement, all in one transaction.
func (s *Store) AssignChief(ctx context.Context, departmentID, teacherID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var prev sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT chief_teacher_id FROM departments WHERE id = $1 FOR UPDATE`, departmentID).Scan(&prev)
		if err != nil {
			return notFound(err)
		}

		var teacherDept int64
		if err := tx.QueryRowContext(ctx,
			`SELECT department_id FROM teachers WHERE id = $1`, teacherID).Scan(&teacherDept); err != nil {
			return notFound(err)
		}
		if teacherDept != departmentID {
			return fmt.Errorf("%w: l'enseignant n'appartient pas à ce département", ErrInvalidState)
		}
		if prev.Valid && prev.Int64 == teacherID {
			return nil
		}

		// a teacher heads one department at most
		if _, err := tx.ExecContext(ctx,
			`UPDATE departments SET chief_teacher_id = NULL WHERE chief_teacher_id = $1`, teacherID); err != nil {
			return err
		}
		if prev.Valid {
			if _, err := tx.ExecContext(ctx, `
				UPDATE users SET role = 'enseignant'
				WHERE id = (SELECT user_id FROM teachers WHERE id = $1) AND role = 'chef_departement'`, prev.Int64); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE departments SET chief_teacher_id = $2 WHERE id = $1`, departmentID, teacherID); err != nil {
			return mapWriteErr(err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET role = 'chef_departement'
			WHERE id = (SELECT user_id FROM teachers WHERE id = $1) AND role <> 'admin'`, teacherID)
		return err
	})
}
