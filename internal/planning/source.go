package planning

import (
	"context"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

// JurySource is the storage a jury preview reads from.
type JurySource interface {
	EligibleStudents(ctx context.Context, departmentID int64) ([]models.EligibleStudent, error)
	PlanningTeachers(ctx context.Context, departmentID int64) ([]Teacher, error)
	Participations(ctx context.Context) ([]Participation, error)
}

// PreviewJurys plans every eligible student of a department (0 for all) against the
// department's teachers, balancing loads with the jurys already stored.
func PreviewJurys(ctx context.Context, src JurySource, departmentID int64, p JuryParams) (JuryPlan, error) {
	eligible, err := src.EligibleStudents(ctx, departmentID)
	if err != nil {
		return JuryPlan{}, err
	}
	teachers, err := src.PlanningTeachers(ctx, departmentID)
	if err != nil {
		return JuryPlan{}, err
	}
	existing, err := src.Participations(ctx)
	if err != nil {
		return JuryPlan{}, err
	}
	candidates := make([]Candidate, len(eligible))
	for i, e := range eligible {
		candidates[i] = Candidate{StudentID: e.StudentID, StudentName: e.StudentName, AdvisorID: e.AdvisorID}
	}
	return PlanJurys(candidates, teachers, existing, p)
}
