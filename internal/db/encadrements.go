package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

const encadrementQuery = `
	SELECT e.id, e.student_id, e.teacher_id, e.theme_id, e.status, e.created_at,
	       su.last_name || ' ' || su.first_name, tu.last_name || ' ' || tu.first_name, th.title
	FROM encadrements e
	JOIN students s ON s.id = e.student_id
	JOIN users su ON su.id = s.user_id
	JOIN teachers t ON t.id = e.teacher_id
	JOIN users tu ON tu.id = t.user_id
	LEFT JOIN themes th ON th.id = e.theme_id`

func (s *Store) queryEncadrements(ctx context.Context, q string, args ...any) ([]models.Encadrement, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Encadrement{}
	for rows.Next() {
		var e models.Encadrement
		if err := rows.Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.ThemeID, &e.Status, &e.CreatedAt,
			&e.StudentName, &e.TeacherName, &e.ThemeTitle); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEncadrements(ctx context.Context, departmentID int64) ([]models.Encadrement, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	q := encadrementQuery
	var args []any
	if departmentID != 0 {
		args = append(args, departmentID)
		q += fmt.Sprintf(" WHERE s.department_id = $%d", len(args))
	}
	return s.queryEncadrements(ctx, q+` ORDER BY su.last_name, su.first_name`, args...)
}

// SupervisionsOf lists the encadrements held by a teacher.
func (s *Store) SupervisionsOf(ctx context.Context, teacherID int64) ([]models.Encadrement, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.queryEncadrements(ctx, encadrementQuery+` WHERE e.teacher_id = $1 ORDER BY su.last_name, su.first_name`, teacherID)
}

// AssignAdvisor sets the validated advisor of a student, keeping any validated theme link.
func (s *Store) AssignAdvisor(ctx context.Context, studentID, teacherID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return assignAdvisor(ctx, tx, studentID, teacherID)
	})
}

func assignAdvisor(ctx context.Context, tx *sql.Tx, studentID, teacherID int64) error {
	var sameDept bool
	err := tx.QueryRowContext(ctx, `
		SELECT s.department_id = t.department_id
		FROM students s, teachers t
		WHERE s.id = $1 AND t.id = $2`, studentID, teacherID).Scan(&sameDept)
	if err != nil {
		return notFound(err)
	}
	if !sameDept {
		return fmt.Errorf("%w: l'enseignant et l'étudiant doivent être du même département", ErrInvalidState)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO encadrements (student_id, teacher_id, theme_id, status)
		VALUES ($1, $2,
			(SELECT id FROM themes WHERE student_id = $1 AND status IN ('Valide', 'Valide_Avec_Reserves')
			 ORDER BY decided_at DESC NULLS LAST LIMIT 1),
			'Valide')
		ON CONFLICT (student_id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id, status = 'Valide',
			theme_id = COALESCE(encadrements.theme_id, EXCLUDED.theme_id)`, studentID, teacherID)
	return mapWriteErr(err)
}

// CommitAdvisors stores a batch of advisor proposals; any invalid line aborts the batch.
func (s *Store) CommitAdvisors(ctx context.Context, proposals []planning.AdvisorProposal) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range proposals {
			if err := assignAdvisor(ctx, tx, p.StudentID, p.TeacherID); err != nil {
				return fmt.Errorf("étudiant %d: %w", p.StudentID, err)
			}
		}
		return nil
	})
}

// AdvisorCandidates lists the department's students without a validated encadrement,
// with the teacher of their pending theme as preference.
func (s *Store) AdvisorCandidates(ctx context.Context, departmentID int64) ([]planning.AdvisorCandidate, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, u.last_name || ' ' || u.first_name, s.department_id,
		       COALESCE((SELECT th.teacher_id FROM themes th
		                 WHERE th.student_id = s.id AND th.status <> 'Refuse'
		                 ORDER BY th.created_at DESC LIMIT 1), 0)
		FROM students s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN encadrements e ON e.student_id = s.id AND e.status = 'Valide'
		WHERE e.id IS NULL AND ($1::bigint = 0 OR s.department_id = $1)
		ORDER BY u.last_name, u.first_name, s.id`, departmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []planning.AdvisorCandidate{}
	for rows.Next() {
		var c planning.AdvisorCandidate
		if err := rows.Scan(&c.StudentID, &c.StudentName, &c.DepartmentID, &c.PreferredTeacherID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AdvisorLoads counts validated encadrements per teacher.
func (s *Store) AdvisorLoads(ctx context.Context) (map[int64]int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT teacher_id, COUNT(*) FROM encadrements WHERE status = 'Valide' GROUP BY teacher_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
