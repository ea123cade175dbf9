//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

type campus struct {
	dept     models.Department
	teachers []models.Teacher // Professeur, Maitre_Conferences, Maitre_Assistant, Assistant
	students []models.StudentProfile
}

func seedCampus(t *testing.T, s *db.Store, nStudents int) campus {
	t.Helper()
	ctx := context.Background()
	d, err := s.CreateDepartment(ctx, "info", "Informatique")
	require.NoError(t, err)

	c := campus{dept: d}
	for i, g := range []models.Grade{models.GradeProfesseur, models.GradeMaitreConferences, models.GradeMaitreAssistant, models.GradeAssistant} {
		tch, err := s.CreateTeacher(ctx, models.Teacher{
			DepartmentID: d.ID, Matricule: fmt.Sprintf("ENS%03d", i+1), Grade: g,
			FirstName: "Prof", LastName: fmt.Sprintf("Enseignant%d", i+1), Email: fmt.Sprintf("ens%d@univ.cm", i+1),
		}, "")
		require.NoError(t, err)
		c.teachers = append(c.teachers, tch)
	}
	for i := 0; i < nStudents; i++ {
		st, err := s.CreateStudent(ctx, models.StudentProfile{
			DepartmentID: d.ID, Matricule: fmt.Sprintf("ETU%03d", i+1), Level: "Master 2", AcademicYear: "2024-2025",
			FirstName: "Etu", LastName: fmt.Sprintf("Etudiant%d", i+1), Email: fmt.Sprintf("etu%d@univ.cm", i+1),
		}, "")
		require.NoError(t, err)
		c.students = append(c.students, st)
	}
	return c
}

func TestDecideTheme_ValidatedCreatesEncadrement(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	c := seedCampus(t, h.Store, 1)
	st, advisor := c.students[0], c.teachers[3]

	th, err := h.Store.ProposeTheme(ctx, st.ID, advisor.ID, "Détection de fraude mobile money", "")
	require.NoError(t, err)
	assert.Equal(t, models.ThemePropose, th.Status)

	_, err = h.Store.ProposeTheme(ctx, st.ID, advisor.ID, "Un second thème", "")
	require.ErrorIs(t, err, db.ErrConflict, "one live theme per student")

	th, err = h.Store.DecideTheme(ctx, th.ID, models.ThemeValideAvecReserves, "préciser le corpus")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeValideAvecReserves, th.Status)
	require.NotNil(t, th.Reserves)

	_, err = h.Store.DecideTheme(ctx, th.ID, models.ThemeRefuse, "")
	require.ErrorIs(t, err, academic.ErrThemeDecision)

	sup, err := h.Store.SupervisionsOf(ctx, advisor.ID)
	require.NoError(t, err)
	require.Len(t, sup, 1)
	assert.Equal(t, models.EncadrementValide, sup[0].Status)
	require.NotNil(t, sup[0].ThemeID)
	assert.Equal(t, th.ID, *sup[0].ThemeID)

	eligible, err := h.Store.EligibleStudents(ctx, c.dept.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, advisor.ID, eligible[0].AdvisorID)
}

func TestAssignChief_SwapsRoles(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	c := seedCampus(t, h.Store, 0)
	first, second := c.teachers[0], c.teachers[1]

	require.NoError(t, h.Store.AssignChief(ctx, c.dept.ID, first.ID))
	require.NoError(t, h.Store.AssignChief(ctx, c.dept.ID, second.ID))

	d, err := h.Store.DepartmentByID(ctx, c.dept.ID)
	require.NoError(t, err)
	require.NotNil(t, d.ChiefTeacherID)
	assert.Equal(t, second.ID, *d.ChiefTeacherID)

	u1, _ := h.Store.UserByID(ctx, first.UserID)
	u2, _ := h.Store.UserByID(ctx, second.UserID)
	assert.Equal(t, models.RoleTeacher, u1.Role)
	assert.Equal(t, models.RoleChief, u2.Role)

	other, err := h.Store.CreateDepartment(ctx, "math", "Mathématiques")
	require.NoError(t, err)
	require.ErrorIs(t, h.Store.AssignChief(ctx, other.ID, first.ID), db.ErrInvalidState)
}

func validate(t *testing.T, s *db.Store, st models.StudentProfile, advisor models.Teacher) {
	t.Helper()
	ctx := context.Background()
	th, err := s.ProposeTheme(ctx, st.ID, advisor.ID, "Thème de "+st.LastName, "")
	require.NoError(t, err)
	_, err = s.DecideTheme(ctx, th.ID, models.ThemeValide, "")
	require.NoError(t, err)
}

func TestCreateJurys_RevalidatesEverything(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	c := seedCampus(t, h.Store, 3)
	prof, mc, ma, asst := c.teachers[0], c.teachers[1], c.teachers[2], c.teachers[3]
	validate(t, h.Store, c.students[0], asst)
	validate(t, h.Store, c.students[1], ma)
	// students[2] has no validated theme

	monday := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	ok := academic.Slot{
		StudentID: c.students[0].ID,
		Panel:     academic.Panel{PresidentID: prof.ID, RapporteurID: ma.ID, ExaminateurID: asst.ID},
		Start:     monday, Duration: time.Hour, Room: "A1",
	}

	_, err := h.Store.CreateJurys(ctx, []academic.Slot{{
		StudentID: c.students[2].ID, Panel: academic.Panel{PresidentID: prof.ID, RapporteurID: ma.ID, ExaminateurID: asst.ID},
		Start: monday, Duration: time.Hour, Room: "A1",
	}})
	require.ErrorIs(t, err, academic.ErrNotEligible)

	_, err = h.Store.CreateJurys(ctx, []academic.Slot{{
		StudentID: c.students[1].ID, Panel: academic.Panel{PresidentID: prof.ID, RapporteurID: mc.ID, ExaminateurID: asst.ID},
		Start: monday, Duration: time.Hour, Room: "B2",
	}})
	require.ErrorIs(t, err, academic.ErrJuryMembers, "the advisor must sit as examiner")

	// same room and shared president at the same time: whole batch refused
	clash := academic.Slot{
		StudentID: c.students[1].ID,
		Panel:     academic.Panel{PresidentID: prof.ID, RapporteurID: asst.ID, ExaminateurID: ma.ID},
		Start:     monday, Duration: time.Hour, Room: "B2",
	}
	_, err = h.Store.CreateJurys(ctx, []academic.Slot{ok, clash})
	require.ErrorIs(t, err, academic.ErrJuryOverlap)
	list, err := h.Store.ListJurys(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	clash.Panel.PresidentID = mc.ID
	clash.Start = monday.Add(75 * time.Minute)
	ids, err := h.Store.CreateJurys(ctx, []academic.Slot{ok, clash})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	v, err := h.Store.JuryOfStudent(ctx, c.students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", v.Room)
	assert.Equal(t, 60, v.DurationMinutes)
	assert.Equal(t, "Thème de "+c.students[0].LastName, v.ThemeTitle)

	_, err = h.Store.CreateJurys(ctx, []academic.Slot{ok})
	require.ErrorIs(t, err, academic.ErrNotEligible, "a student has one jury")

	require.NoError(t, h.Store.MarkJuryDone(ctx, ids[0]))
	require.ErrorIs(t, h.Store.DeleteJury(ctx, ids[0]), db.ErrInvalidState)
	require.NoError(t, h.Store.DeleteJury(ctx, ids[1]))
	require.ErrorIs(t, h.Store.DeleteJury(ctx, ids[1]), db.ErrNotFound)

	duties, err := h.Store.JuryDutiesOf(ctx, prof.ID)
	require.NoError(t, err)
	assert.Len(t, duties, 1)

	recipients, err := h.Store.JuryRecipients(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, recipients, 4)
}

func TestDueForReminder(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	c := seedCampus(t, h.Store, 1)
	prof, ma, asst := c.teachers[0], c.teachers[2], c.teachers[3]
	validate(t, h.Store, c.students[0], asst)

	// insert directly: the slot rules would refuse an arbitrary "tomorrow"
	var id int64
	err := h.DB.QueryRow(`
		INSERT INTO jurys (student_id, president_id, rapporteur_id, examinateur_id, scheduled_at, duration_minutes, room)
		VALUES ($1, $2, $3, $4, now() + interval '20 hours', 60, 'A1') RETURNING id`,
		c.students[0].ID, prof.ID, ma.ID, asst.ID).Scan(&id)
	require.NoError(t, err)

	due, err := h.Store.DueForReminder(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)

	require.NoError(t, h.Store.MarkReminded(ctx, []int64{id}))
	due, err = h.Store.DueForReminder(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestAdvisorCandidatesAndCommit(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()
	c := seedCampus(t, h.Store, 2)
	_, err := h.Store.ProposeTheme(ctx, c.students[0].ID, c.teachers[2].ID, "Thème en attente", "")
	require.NoError(t, err)

	cands, err := h.Store.AdvisorCandidates(ctx, c.dept.ID)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, c.teachers[2].ID, cands[0].PreferredTeacherID)
	assert.Equal(t, int64(0), cands[1].PreferredTeacherID)

	require.NoError(t, h.Store.AssignAdvisor(ctx, c.students[1].ID, c.teachers[3].ID))
	loads, err := h.Store.AdvisorLoads(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{c.teachers[3].ID: 1}, loads)

	cands, err = h.Store.AdvisorCandidates(ctx, c.dept.ID)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}
