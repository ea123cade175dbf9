package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func TestPlanAdvisors(t *testing.T) {
	teachers := []Teacher{
		{ID: 1, Name: "Ngo Bassa", Grade: models.GradeProfesseur, DepartmentID: 10},
		{ID: 2, Name: "Fotso", Grade: models.GradeMaitreAssistant, DepartmentID: 10},
		{ID: 3, Name: "Eto'o", Grade: models.GradeAssistant, DepartmentID: 20},
	}
	loads := map[int64]int{1: 1}

	in := []AdvisorCandidate{
		{StudentID: 1, StudentName: "A", DepartmentID: 10, PreferredTeacherID: 1},
		{StudentID: 2, StudentName: "B", DepartmentID: 10, PreferredTeacherID: 1}, // 1 is now full
		{StudentID: 3, StudentName: "C", DepartmentID: 10},
		{StudentID: 4, StudentName: "D", DepartmentID: 20, PreferredTeacherID: 1}, // other department
		{StudentID: 5, StudentName: "E", DepartmentID: 10},
	}

	plan, err := PlanAdvisors(in, teachers, loads, 2)
	require.NoError(t, err)

	got := map[int64]int64{}
	for _, p := range plan.Proposals {
		got[p.StudentID] = p.TeacherID
	}
	assert.Equal(t, map[int64]int64{1: 1, 2: 2, 3: 2, 4: 3}, got)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, int64(5), plan.Skipped[0].StudentID)
	assert.True(t, plan.Proposals[0].Preferred)
	assert.False(t, plan.Proposals[1].Preferred)

	// input loads are left untouched
	assert.Equal(t, map[int64]int{1: 1}, loads)
}

func TestPlanAdvisors_RejectsZeroCapacity(t *testing.T) {
	_, err := PlanAdvisors(nil, nil, nil, 0)
	require.ErrorIs(t, err, ErrInvalidParams)
}
