package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

type memSource struct {
	eligible []models.EligibleStudent
	teachers []Teacher
	existing []Participation
	err      error
	depts    []int64
}

func (m *memSource) EligibleStudents(_ context.Context, dept int64) ([]models.EligibleStudent, error) {
	m.depts = append(m.depts, dept)
	return m.eligible, m.err
}

func (m *memSource) PlanningTeachers(_ context.Context, dept int64) ([]Teacher, error) {
	m.depts = append(m.depts, dept)
	return m.teachers, nil
}

func (m *memSource) Participations(context.Context) ([]Participation, error) {
	return m.existing, nil
}

func TestPreviewJurys(t *testing.T) {
	src := &memSource{
		eligible: []models.EligibleStudent{
			{StudentID: 7, StudentName: "Atangana", AdvisorID: 4},
			{StudentID: 8, StudentName: "Bilong", AdvisorID: 3},
		},
		teachers: pool(),
		existing: []Participation{{PresidentID: 1, RapporteurID: 3, ExaminateurID: 4}},
	}
	params := JuryParams{Start: monday(8, 0), Duration: time.Hour, DailyCap: 2, Rooms: []string{"A"}}

	plan, err := PreviewJurys(context.Background(), src, 10, params)
	require.NoError(t, err)
	require.Len(t, plan.Proposals, 2)
	assert.Equal(t, []int64{10, 10}, src.depts)
	assert.Equal(t, int64(7), plan.Proposals[0].StudentID)
	assert.Equal(t, int64(4), plan.Proposals[0].ExaminateurID)
	assert.Equal(t, int64(3), plan.Proposals[1].ExaminateurID)
	assert.NotEqual(t, int64(1), plan.Proposals[0].PresidentID, "stored jurys weigh on the balance")

	src.err = errors.New("connexion perdue")
	_, err = PreviewJurys(context.Background(), src, 10, params)
	require.ErrorIs(t, err, src.err)
}
