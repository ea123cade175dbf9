package planning

import "fmt"

// AdvisorCandidate is a student without a validated encadrement.
type AdvisorCandidate struct {
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	DepartmentID int64  `json:"department_id"`
	// PreferredTeacherID is the teacher the student's pending theme was proposed to, or 0.
	PreferredTeacherID int64 `json:"preferred_teacher_id"`
}

type AdvisorProposal struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	TeacherID   int64  `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Preferred   bool   `json:"preferred"`
}

type AdvisorPlan struct {
	Proposals []AdvisorProposal `json:"proposals"`
	Skipped   []Skipped         `json:"skipped"`
}

// PlanAdvisors assigns each student to the preferred teacher when they still have room,
// otherwise to the least-loaded teacher of the student's department. loads holds the
// current number of validated encadrements per teacher and is not modified.
func PlanAdvisors(students []AdvisorCandidate, teachers []Teacher, loads map[int64]int, maxPerTeacher int) (AdvisorPlan, error) {
	if maxPerTeacher < 1 {
		return AdvisorPlan{}, fmt.Errorf("%w: la capacité par enseignant doit être au moins 1", ErrInvalidParams)
	}

	load := make(map[int64]int, len(loads))
	for id, n := range loads {
		load[id] = n
	}
	byID := make(map[int64]Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}

	plan := AdvisorPlan{Proposals: []AdvisorProposal{}, Skipped: []Skipped{}}
	for _, s := range students {
		sameDept := func(t Teacher) bool {
			return s.DepartmentID == 0 || t.DepartmentID == s.DepartmentID
		}

		if pref, ok := byID[s.PreferredTeacherID]; ok && sameDept(pref) && load[pref.ID] < maxPerTeacher {
			load[pref.ID]++
			plan.Proposals = append(plan.Proposals, AdvisorProposal{s.StudentID, s.StudentName, pref.ID, pref.Name, true})
			continue
		}

		t, ok := leastLoaded(teachers, load, func(t Teacher) bool {
			return sameDept(t) && load[t.ID] < maxPerTeacher
		})
		if !ok {
			plan.Skipped = append(plan.Skipped, Skipped{s.StudentID, s.StudentName, "aucun enseignant disponible dans le département"})
			continue
		}
		load[t.ID]++
		plan.Proposals = append(plan.Proposals, AdvisorProposal{s.StudentID, s.StudentName, t.ID, t.Name, false})
	}
	return plan, nil
}
