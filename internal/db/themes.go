package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const themeQuery = `
	SELECT th.id, th.student_id, th.teacher_id, th.title, th.description, th.status, th.reserves,
	       th.created_at, th.decided_at, su.last_name || ' ' || su.first_name, tu.last_name || ' ' || tu.first_name
	FROM themes th
	JOIN students s ON s.id = th.student_id
	JOIN users su ON su.id = s.user_id
	JOIN teachers t ON t.id = th.teacher_id
	JOIN users tu ON tu.id = t.user_id`

func scanTheme(row scanner) (models.Theme, error) {
	var th models.Theme
	err := row.Scan(&th.ID, &th.StudentID, &th.TeacherID, &th.Title, &th.Description, &th.Status, &th.Reserves,
		&th.CreatedAt, &th.DecidedAt, &th.StudentName, &th.TeacherName)
	return th, err
}

func (s *Store) queryThemes(ctx context.Context, q string, args ...any) ([]models.Theme, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Theme{}
	for rows.Next() {
		th, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

// ProposeTheme stores a new proposal. A student with a live (non refused) theme gets ErrConflict.
func (s *Store) ProposeTheme(ctx context.Context, studentID, teacherID int64, title, description string) (models.Theme, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO themes (student_id, teacher_id, title, description)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		studentID, teacherID, strings.TrimSpace(title), strings.TrimSpace(description)).Scan(&id)
	if err != nil {
		return models.Theme{}, mapWriteErr(err)
	}
	th, err := scanTheme(s.DB.QueryRowContext(ctx, themeQuery+` WHERE th.id = $1`, id))
	return th, notFound(err)
}

func (s *Store) ThemeByID(ctx context.Context, id int64) (models.Theme, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	th, err := scanTheme(s.DB.QueryRowContext(ctx, themeQuery+` WHERE th.id = $1`, id))
	return th, notFound(err)
}

// ThemesOfStudent returns every theme of the student, latest first.
func (s *Store) ThemesOfStudent(ctx context.Context, studentID int64) ([]models.Theme, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.queryThemes(ctx, themeQuery+` WHERE th.student_id = $1 ORDER BY th.created_at DESC`, studentID)
}

// ListThemes filters by teacher (0 = any), department (0 = any) and status ("" = any).
func (s *Store) ListThemes(ctx context.Context, teacherID, departmentID int64, status models.ThemeStatus) ([]models.Theme, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := themeQuery + ` WHERE TRUE`
	var args []any
	if teacherID != 0 {
		args = append(args, teacherID)
		q += fmt.Sprintf(" AND th.teacher_id = $%d", len(args))
	}
	if departmentID != 0 {
		args = append(args, departmentID)
		q += fmt.Sprintf(" AND s.department_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND th.status = $%d", len(args))
	}
	return s.queryThemes(ctx, q+` ORDER BY th.created_at DESC`, args...)
}

// DecideTheme records the teacher's decision. A validated theme creates or replaces the
// student's encadrement as Valide with that teacher in the same transaction.
func (s *Store) DecideTheme(ctx context.Context, id int64, decision models.ThemeStatus, reserves string) (models.Theme, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			current              models.ThemeStatus
			studentID, teacherID int64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, student_id, teacher_id FROM themes WHERE id = $1 FOR UPDATE`, id,
		).Scan(&current, &studentID, &teacherID)
		if err != nil {
			return notFound(err)
		}
		if err := academic.DecideTheme(current, decision, reserves); err != nil {
			return err
		}

		var res *string
		if r := strings.TrimSpace(reserves); r != "" {
			res = &r
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE themes SET status = $2, reserves = $3, decided_at = now() WHERE id = $1`,
			id, decision, res); err != nil {
			return err
		}
		if !decision.Validated() {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO encadrements (student_id, teacher_id, theme_id, status)
			VALUES ($1, $2, $3, 'Valide')
			ON CONFLICT (student_id) DO UPDATE
			SET teacher_id = EXCLUDED.teacher_id, theme_id = EXCLUDED.theme_id, status = 'Valide'`,
			studentID, teacherID, id)
		return err
	})
	if err != nil {
		return models.Theme{}, err
	}
	return s.ThemeByID(ctx, id)
}
