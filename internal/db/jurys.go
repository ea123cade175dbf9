package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

const juryViewQuery = `
	SELECT j.id, j.student_id, j.president_id, j.rapporteur_id, j.examinateur_id, j.scheduled_at,
	       j.duration_minutes, j.room, j.status, j.reminder_sent, j.created_at,
	       su.last_name || ' ' || su.first_name, s.matricule,
	       COALESCE((SELECT th.title FROM themes th
	                 WHERE th.student_id = j.student_id AND th.status IN ('Valide', 'Valide_Avec_Reserves')
	                 ORDER BY th.decided_at DESC NULLS LAST LIMIT 1), ''),
	       pu.last_name || ' ' || pu.first_name, pu.email,
	       ru.last_name || ' ' || ru.first_name, ru.email,
	       eu.last_name || ' ' || eu.first_name, eu.email
	FROM jurys j
	JOIN students s ON s.id = j.student_id
	JOIN users su ON su.id = s.user_id
	JOIN teachers pt ON pt.id = j.president_id
	JOIN users pu ON pu.id = pt.user_id
	JOIN teachers rt ON rt.id = j.rapporteur_id
	JOIN users ru ON ru.id = rt.user_id
	JOIN teachers et ON et.id = j.examinateur_id
	JOIN users eu ON eu.id = et.user_id`

func scanJuryView(row scanner) (models.JuryView, error) {
	var v models.JuryView
	err := row.Scan(&v.ID, &v.StudentID, &v.PresidentID, &v.RapporteurID, &v.ExaminateurID, &v.ScheduledAt,
		&v.DurationMinutes, &v.Room, &v.Status, &v.ReminderSent, &v.CreatedAt,
		&v.StudentName, &v.StudentMatricule, &v.ThemeTitle,
		&v.PresidentName, &v.PresidentEmail, &v.RapporteurName, &v.RapporteurEmail,
		&v.ExaminateurName, &v.ExaminateurEmail)
	return v, err
}

func queryJuryViews(ctx context.Context, q queryer, query string, args ...any) ([]models.JuryView, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.JuryView{}
	for rows.Next() {
		v, err := scanJuryView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) ListJurys(ctx context.Context, departmentID int64) ([]models.JuryView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	q := juryViewQuery
	var args []any
	if departmentID != 0 {
		args = append(args, departmentID)
		q += fmt.Sprintf(" WHERE s.department_id = $%d", len(args))
	}
	return queryJuryViews(ctx, s.DB, q+` ORDER BY j.scheduled_at, j.room`, args...)
}

func (s *Store) JuryByID(ctx context.Context, id int64) (models.JuryView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	v, err := scanJuryView(s.DB.QueryRowContext(ctx, juryViewQuery+` WHERE j.id = $1`, id))
	return v, notFound(err)
}

func (s *Store) JuryOfStudent(ctx context.Context, studentID int64) (models.JuryView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	v, err := scanJuryView(s.DB.QueryRowContext(ctx, juryViewQuery+` WHERE j.student_id = $1`, studentID))
	return v, notFound(err)
}

// JuryDutiesOf lists the jurys a teacher sits on, in any role.
func (s *Store) JuryDutiesOf(ctx context.Context, teacherID int64) ([]models.JuryView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return queryJuryViews(ctx, s.DB, juryViewQuery+`
		WHERE $1 IN (j.president_id, j.rapporteur_id, j.examinateur_id)
		ORDER BY j.scheduled_at`, teacherID)
}

// EligibleStudents returns students with a validated theme and a validated encadrement
// and no jury yet. The advisor is the encadrement teacher.
func (s *Store) EligibleStudents(ctx context.Context, departmentID int64) ([]models.EligibleStudent, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, su.last_name || ' ' || su.first_name, s.matricule, s.department_id,
		       e.teacher_id, tu.last_name || ' ' || tu.first_name, th.title
		FROM students s
		JOIN users su ON su.id = s.user_id
		JOIN encadrements e ON e.student_id = s.id AND e.status = 'Valide'
		JOIN teachers t ON t.id = e.teacher_id
		JOIN users tu ON tu.id = t.user_id
		JOIN LATERAL (
			SELECT title FROM themes
			WHERE student_id = s.id AND status IN ('Valide', 'Valide_Avec_Reserves')
			ORDER BY decided_at DESC NULLS LAST LIMIT 1
		) th ON TRUE
		LEFT JOIN jurys j ON j.student_id = s.id
		WHERE j.id IS NULL AND ($1::bigint = 0 OR s.department_id = $1)
		ORDER BY su.last_name, su.first_name, s.id`, departmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.EligibleStudent{}
	for rows.Next() {
		var e models.EligibleStudent
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.Matricule, &e.DepartmentID, &e.AdvisorID, &e.AdvisorName, &e.ThemeTitle); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PlanningTeachers lists teachers for the scheduler in a stable order (department 0 = all).
func (s *Store) PlanningTeachers(ctx context.Context, departmentID int64) ([]planning.Teacher, error) {
	ts, err := s.ListTeachers(ctx, departmentID, "")
	if err != nil {
		return nil, err
	}
	out := make([]planning.Teacher, 0, len(ts))
	for _, t := range ts {
		out = append(out, planning.Teacher{ID: t.ID, Name: t.FullName(), Grade: t.Grade, DepartmentID: t.DepartmentID})
	}
	return out, nil
}

// Participations returns the panel of every existing jury.
func (s *Store) Participations(ctx context.Context) ([]planning.Participation, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `SELECT president_id, rapporteur_id, examinateur_id FROM jurys`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []planning.Participation
	for rows.Next() {
		var p planning.Participation
		if err := rows.Scan(&p.PresidentID, &p.RapporteurID, &p.ExaminateurID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateJurys inserts a batch of jurys in one transaction after re-checking, for each,
// that the student is still eligible, the panel is valid, the slot is acceptable and
// nothing overlaps in room or teacher. Any failure aborts the whole batch.
func (s *Store) CreateJurys(ctx context.Context, slots []academic.Slot) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	ids := make([]int64, 0, len(slots))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// serialize concurrent commits so the overlap check sees every committed jury
		if _, err := tx.ExecContext(ctx, `LOCK TABLE jurys IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}

		grades, err := teacherGrades(ctx, tx)
		if err != nil {
			return err
		}

		seen := map[int64]bool{}
		var from, to time.Time
		for i, sl := range slots {
			if seen[sl.StudentID] {
				return fmt.Errorf("ligne %d: %w: étudiant en double", i+1, academic.ErrNotEligible)
			}
			seen[sl.StudentID] = true

			var advisorID int64
			err := tx.QueryRowContext(ctx, `
				SELECT e.teacher_id
				FROM encadrements e
				WHERE e.student_id = $1 AND e.status = 'Valide'
				  AND EXISTS (SELECT 1 FROM themes th WHERE th.student_id = e.student_id AND th.status IN ('Valide', 'Valide_Avec_Reserves'))
				  AND NOT EXISTS (SELECT 1 FROM jurys j WHERE j.student_id = e.student_id)
				FOR UPDATE OF e`, sl.StudentID).Scan(&advisorID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("ligne %d: %w: thème et encadrement validés requis, sans jury existant", i+1, academic.ErrNotEligible)
				}
				return err
			}
			if err := academic.CheckPanel(sl.Panel, advisorID, grades); err != nil {
				return fmt.Errorf("ligne %d: %w", i+1, err)
			}
			if err := academic.CheckSlot(sl); err != nil {
				return fmt.Errorf("ligne %d: %w", i+1, err)
			}
			if from.IsZero() || sl.Start.Before(from) {
				from = sl.Start
			}
			if sl.End().After(to) {
				to = sl.End()
			}
		}

		existing, err := slotsBetween(ctx, tx, from.Add(-24*time.Hour), to.Add(24*time.Hour))
		if err != nil {
			return err
		}
		if err := academic.CheckOverlaps(slots, existing); err != nil {
			return err
		}

		for _, sl := range slots {
			var id int64
			err := tx.QueryRowContext(ctx, `
				INSERT INTO jurys (student_id, president_id, rapporteur_id, examinateur_id, scheduled_at, duration_minutes, room)
				VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				sl.StudentID, sl.Panel.PresidentID, sl.Panel.RapporteurID, sl.Panel.ExaminateurID,
				sl.Start, int(sl.Duration/time.Minute), sl.Room).Scan(&id)
			if err != nil {
				return mapWriteErr(err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func teacherGrades(ctx context.Context, tx *sql.Tx) (map[int64]models.Grade, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, grade FROM teachers`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[int64]models.Grade{}
	for rows.Next() {
		var id int64
		var g models.Grade
		if err := rows.Scan(&id, &g); err != nil {
			return nil, err
		}
		out[id] = g
	}
	return out, rows.Err()
}

func slotsBetween(ctx context.Context, tx *sql.Tx, from, to time.Time) ([]academic.Slot, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT student_id, president_id, rapporteur_id, examinateur_id, scheduled_at, duration_minutes, room
		FROM jurys
		WHERE scheduled_at >= $1 AND scheduled_at < $2`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []academic.Slot
	for rows.Next() {
		var (
			sl      academic.Slot
			minutes int
		)
		if err := rows.Scan(&sl.StudentID, &sl.Panel.PresidentID, &sl.Panel.RapporteurID, &sl.Panel.ExaminateurID,
			&sl.Start, &minutes, &sl.Room); err != nil {
			return nil, err
		}
		sl.Duration = time.Duration(minutes) * time.Minute
		out = append(out, sl)
	}
	return out, rows.Err()
}

// MarkJuryDone moves a jury from Cree to Termine.
func (s *Store) MarkJuryDone(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.juryTransition(ctx, id, `UPDATE jurys SET status = 'Termine' WHERE id = $1 AND status = 'Cree'`)
}

// DeleteJury removes a jury that has not taken place.
func (s *Store) DeleteJury(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.juryTransition(ctx, id, `DELETE FROM jurys WHERE id = $1 AND status = 'Cree'`)
}

func (s *Store) juryTransition(ctx context.Context, id int64, stmt string) error {
	res, err := s.DB.ExecContext(ctx, stmt, id)
	if err != nil {
		return err
	}
	if affected(res) == 1 {
		return nil
	}
	var st models.JuryStatus
	if err := s.DB.QueryRowContext(ctx, `SELECT status FROM jurys WHERE id = $1`, id).Scan(&st); err != nil {
		return notFound(err)
	}
	return fmt.Errorf("%w: jury déjà %s", ErrInvalidState, st)
}

// DueForReminder returns jurys starting within the next `within` that were not reminded yet.
func (s *Store) DueForReminder(ctx context.Context, within time.Duration, batch int) ([]models.JuryView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return queryJuryViews(ctx, s.DB, juryViewQuery+`
		WHERE j.status = 'Cree' AND NOT j.reminder_sent
		  AND j.scheduled_at > now() AND j.scheduled_at <= now() + $1 * interval '1 second'
		ORDER BY j.scheduled_at
		LIMIT $2`, int64(within/time.Second), batch)
}

func (s *Store) MarkReminded(ctx context.Context, ids []int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err := s.DB.ExecContext(ctx, `UPDATE jurys SET reminder_sent = TRUE WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// Recipient is a person to notify about a jury.
type Recipient struct {
	UserID int64
	Name   string
	Role   string
	ChatID *int64
}

// JuryRecipients returns the student and the three members of a jury with their Telegram chats.
func (s *Store) JuryRecipients(ctx context.Context, juryID int64) ([]Recipient, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT u.id, u.last_name || ' ' || u.first_name, 'étudiant', u.telegram_chat_id
		FROM jurys j JOIN students s ON s.id = j.student_id JOIN users u ON u.id = s.user_id
		WHERE j.id = $1
		UNION ALL
		SELECT u.id, u.last_name || ' ' || u.first_name, m.role, u.telegram_chat_id
		FROM jurys j
		CROSS JOIN LATERAL (VALUES (j.president_id, 'président'), (j.rapporteur_id, 'rapporteur'), (j.examinateur_id, 'examinateur')) AS m(teacher_id, role)
		JOIN teachers t ON t.id = m.teacher_id
		JOIN users u ON u.id = t.user_id
		WHERE j.id = $1`, juryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.UserID, &r.Name, &r.Role, &r.ChatID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
