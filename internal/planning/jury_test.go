package planning

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

var douala = time.FixedZone("WAT", 3600)

func monday(h, m int) time.Time {
	return time.Date(2025, time.June, 2, h, m, 0, 0, douala)
}

func pool() []Teacher {
	return []Teacher{
		{ID: 1, Name: "Ngo Bassa", Grade: models.GradeProfesseur},
		{ID: 2, Name: "Fotso", Grade: models.GradeMaitreConferences},
		{ID: 3, Name: "Kamga", Grade: models.GradeMaitreAssistant},
		{ID: 4, Name: "Abena", Grade: models.GradeAssistant},
		{ID: 5, Name: "Mbarga", Grade: models.GradeProfesseur},
	}
}

func students(n int, advisors ...int64) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			StudentID:   int64(100 + i),
			StudentName: fmt.Sprintf("Etudiant %d", i+1),
			AdvisorID:   advisors[i%len(advisors)],
		}
	}
	return out
}

func TestPlanJurys_SixStudentsTwoRoomsFitOneMonday(t *testing.T) {
	plan, err := PlanJurys(students(6, 3, 4), pool(), nil, JuryParams{
		Start:    monday(8, 0),
		Duration: 60 * time.Minute,
		Break:    15 * time.Minute,
		DailyCap: 3,
		Rooms:    []string{"A1", "B2"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Proposals, 6)
	assert.Empty(t, plan.Skipped)
	assert.Equal(t, []string{"2025-06-02"}, plan.Days())

	want := []struct{ time, room string }{
		{"08:00", "A1"}, {"08:00", "B2"},
		{"09:15", "A1"}, {"09:15", "B2"},
		{"10:30", "A1"}, {"10:30", "B2"},
	}
	for i, w := range want {
		assert.Equal(t, w.time, plan.Proposals[i].Time, "proposal %d", i)
		assert.Equal(t, w.room, plan.Proposals[i].Room, "proposal %d", i)
		assert.Equal(t, 60, plan.Proposals[i].DurationMinutes)
	}
}

func TestPlanJurys_DistinctDaysIsCeilOfCapacity(t *testing.T) {
	cases := []struct{ n, rooms, cap int }{
		{1, 1, 1}, {5, 1, 2}, {6, 2, 3}, {7, 2, 3}, {13, 2, 3}, {20, 3, 2}, {11, 1, 4},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n%d_m%d_c%d", tc.n, tc.rooms, tc.cap), func(t *testing.T) {
			rooms := make([]string, tc.rooms)
			for i := range rooms {
				rooms[i] = fmt.Sprintf("S%d", i+1)
			}
			plan, err := PlanJurys(students(tc.n, 3, 4), pool(), nil, JuryParams{
				Start:    monday(8, 0),
				Duration: time.Hour,
				Break:    15 * time.Minute,
				DailyCap: tc.cap,
				Rooms:    rooms,
			})
			require.NoError(t, err)
			require.Len(t, plan.Proposals, tc.n)

			perDay := tc.rooms * tc.cap
			wantDays := (tc.n + perDay - 1) / perDay
			assert.Len(t, plan.Days(), wantDays)

			for _, p := range plan.Proposals {
				wd := p.ScheduledAt.Weekday()
				assert.NotEqual(t, time.Saturday, wd)
				assert.NotEqual(t, time.Sunday, wd)
			}
		})
	}
}

func TestPlanJurys_PanelInvariants(t *testing.T) {
	in := students(12, 1, 2, 3, 4, 5)
	plan, err := PlanJurys(in, pool(), nil, JuryParams{
		Start: monday(8, 0), Duration: time.Hour, DailyCap: 4, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Proposals, len(in))

	grades := map[int64]models.Grade{}
	for _, tc := range pool() {
		grades[tc.ID] = tc.Grade
	}
	for i, p := range plan.Proposals {
		advisor := in[i].AdvisorID
		assert.Equal(t, advisor, p.ExaminateurID, "examiner must be the advisor")
		assert.NotEqual(t, advisor, p.PresidentID)
		assert.NotEqual(t, advisor, p.RapporteurID)
		assert.NotEqual(t, p.PresidentID, p.RapporteurID)
		assert.True(t, grades[p.PresidentID].CanPreside(), "president %d has grade %s", p.PresidentID, grades[p.PresidentID])
	}
}

func TestPlanJurys_BalancesAgainstExistingJurys(t *testing.T) {
	existing := []Participation{
		{PresidentID: 1, RapporteurID: 3, ExaminateurID: 4},
		{PresidentID: 1, RapporteurID: 3, ExaminateurID: 4},
	}
	plan, err := PlanJurys(students(1, 4), pool(), existing, JuryParams{
		Start: monday(9, 0), Duration: time.Hour, DailyCap: 1, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Proposals, 1)
	// teacher 1 already presided twice, 2 is the least-loaded presiding grade
	assert.Equal(t, int64(2), plan.Proposals[0].PresidentID)
	// 3 has two participations, 5 has none
	assert.Equal(t, int64(5), plan.Proposals[0].RapporteurID)
}

func TestPlanJurys_RoundRobinSpreadsLoad(t *testing.T) {
	plan, err := PlanJurys(students(4, 4), pool(), nil, JuryParams{
		Start: monday(8, 0), Duration: time.Hour, DailyCap: 8, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	presidents := map[int64]int{}
	for _, p := range plan.Proposals {
		presidents[p.PresidentID]++
	}
	for id, n := range presidents {
		assert.LessOrEqual(t, n, 2, "teacher %d presides too often", id)
	}
}

func TestPlanJurys_SkipsWithoutConsumingSlot(t *testing.T) {
	teachers := []Teacher{
		{ID: 1, Name: "Seul Professeur", Grade: models.GradeProfesseur},
		{ID: 3, Name: "Kamga", Grade: models.GradeMaitreAssistant},
		{ID: 4, Name: "Abena", Grade: models.GradeAssistant},
	}
	in := []Candidate{
		{StudentID: 1, StudentName: "A", AdvisorID: 1}, // only presiding teacher is the advisor
		{StudentID: 2, StudentName: "B", AdvisorID: 3},
		{StudentID: 3, StudentName: "C", AdvisorID: 99}, // unknown advisor
	}
	plan, err := PlanJurys(in, teachers, nil, JuryParams{
		Start: monday(8, 0), Duration: time.Hour, DailyCap: 2, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Proposals, 1)
	require.Len(t, plan.Skipped, 2)
	assert.Equal(t, int64(2), plan.Proposals[0].StudentID)
	assert.Equal(t, "08:00", plan.Proposals[0].Time)
	assert.Equal(t, int64(1), plan.Skipped[0].StudentID)
	assert.Equal(t, int64(3), plan.Skipped[1].StudentID)
}

func TestPlanJurys_WeekendSkipping(t *testing.T) {
	friday := time.Date(2025, time.June, 6, 8, 0, 0, 0, douala)
	plan, err := PlanJurys(students(3, 3), pool(), nil, JuryParams{
		Start: friday, Duration: time.Hour, DailyCap: 2, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-06", "2025-06-09"}, plan.Days())
	assert.Equal(t, "08:00", plan.Proposals[2].Time)

	saturday := time.Date(2025, time.June, 7, 10, 0, 0, 0, douala)
	plan, err = PlanJurys(students(1, 3), pool(), nil, JuryParams{
		Start: saturday, Duration: time.Hour, DailyCap: 2, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-09"}, plan.Days())
	assert.Equal(t, "10:00", plan.Proposals[0].Time)
}

func TestPlanJurys_EveningCutoff(t *testing.T) {
	plan, err := PlanJurys(students(3, 3), pool(), nil, JuryParams{
		Start: monday(16, 0), Duration: time.Hour, Break: 15 * time.Minute, DailyCap: 5, Rooms: []string{"A"},
	})
	require.NoError(t, err)
	// 17:15 + 1h would end after 18:00, so each day holds a single slot
	assert.Equal(t, []string{"2025-06-02", "2025-06-03", "2025-06-04"}, plan.Days())
	for _, p := range plan.Proposals {
		assert.Equal(t, "16:00", p.Time)
	}
}

func TestPlanJurys_InvalidParams(t *testing.T) {
	base := JuryParams{Start: monday(8, 0), Duration: time.Hour, DailyCap: 1, Rooms: []string{"A"}}
	cases := map[string]func(p *JuryParams){
		"no rooms":      func(p *JuryParams) { p.Rooms = nil },
		"blank room":    func(p *JuryParams) { p.Rooms = []string{" "} },
		"zero cap":      func(p *JuryParams) { p.DailyCap = 0 },
		"zero duration": func(p *JuryParams) { p.Duration = 0 },
		"negative gap":  func(p *JuryParams) { p.Break = -time.Minute },
		"late start":    func(p *JuryParams) { p.Start = monday(17, 30) },
		"no start":      func(p *JuryParams) { p.Start = time.Time{} },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mut(&p)
			_, err := PlanJurys(students(1, 3), pool(), nil, p)
			require.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}
