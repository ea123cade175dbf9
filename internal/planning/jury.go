// Package planning computes scheduling previews: jury panels with defense slots and
// advisor (encadrement) assignments. The planners are pure and keep their counters for
// one call only; PreviewJurys just gathers their inputs from storage.
package planning

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

// DefaultDayEnd is the latest time of day a defense may end.
const DefaultDayEnd = 18 * time.Hour

var ErrInvalidParams = errors.New("planning: invalid parameters")

type Teacher struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Grade        models.Grade `json:"grade"`
	DepartmentID int64        `json:"department_id"`
}

// Candidate is a student eligible for a jury, with the advisor recorded by the encadrement.
type Candidate struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	AdvisorID   int64  `json:"advisor_id"`
}

// Participation is one existing jury, used only to seed the load counters.
type Participation struct {
	PresidentID   int64
	RapporteurID  int64
	ExaminateurID int64
}

type JuryParams struct {
	Start    time.Time     // date and time of the first slot; its location is used for the whole plan
	Duration time.Duration // length of one defense
	Break    time.Duration // gap between two consecutive slots
	DailyCap int           // slots per room per day
	Rooms    []string
	DayEnd   time.Duration // offset from midnight; zero means DefaultDayEnd
}

type JuryProposal struct {
	StudentID       int64     `json:"student_id"`
	StudentName     string    `json:"student_name"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Room            string    `json:"room"`
	DurationMinutes int       `json:"duration_minutes"`
	PresidentID     int64     `json:"president_id"`
	PresidentName   string    `json:"president_name"`
	RapporteurID    int64     `json:"rapporteur_id"`
	RapporteurName  string    `json:"rapporteur_name"`
	ExaminateurID   int64     `json:"examinateur_id"`
	ExaminateurName string    `json:"examinateur_name"`
}

type Skipped struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

type JuryPlan struct {
	Proposals []JuryProposal `json:"proposals"`
	Skipped   []Skipped      `json:"skipped"`
}

// Days returns the distinct calendar dates used by the plan, in order.
func (p JuryPlan) Days() []string {
	var out []string
	seen := map[string]bool{}
	for _, pr := range p.Proposals {
		if !seen[pr.Date] {
			seen[pr.Date] = true
			out = append(out, pr.Date)
		}
	}
	return out
}

func (p JuryParams) Validate() error {
	if len(p.Rooms) == 0 {
		return fmt.Errorf("%w: au moins une salle est requise", ErrInvalidParams)
	}
	for _, r := range p.Rooms {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%w: nom de salle vide", ErrInvalidParams)
		}
	}
	if p.DailyCap < 1 {
		return fmt.Errorf("%w: le nombre de jurys par jour doit être au moins 1", ErrInvalidParams)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("%w: la durée doit être positive", ErrInvalidParams)
	}
	if p.Break < 0 {
		return fmt.Errorf("%w: la pause ne peut pas être négative", ErrInvalidParams)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: date de début manquante", ErrInvalidParams)
	}
	if offsetOfDay(p.Start)+p.Duration > p.dayEnd() {
		return fmt.Errorf("%w: le premier créneau se termine après %s", ErrInvalidParams, fmtOffset(p.dayEnd()))
	}
	return nil
}

func (p JuryParams) dayEnd() time.Duration {
	if p.DayEnd <= 0 {
		return DefaultDayEnd
	}
	return p.DayEnd
}

// PlanJurys walks students in order and proposes a panel and a slot for each.
// President: least-loaded Professeur/Maitre_Conferences other than the advisor.
// Rapporteur: least-loaded remaining teacher other than president and advisor.
// Examiner: the advisor. Ties go to the teacher listed first.
func PlanJurys(students []Candidate, teachers []Teacher, existing []Participation, p JuryParams) (JuryPlan, error) {
	if err := p.Validate(); err != nil {
		return JuryPlan{}, err
	}

	load := make(map[int64]int, len(teachers))
	for _, j := range existing {
		load[j.PresidentID]++
		load[j.RapporteurID]++
		load[j.ExaminateurID]++
	}
	byID := make(map[int64]Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}

	plan := JuryPlan{Proposals: []JuryProposal{}, Skipped: []Skipped{}}
	cur := newCursor(p)

	for _, s := range students {
		advisor, ok := byID[s.AdvisorID]
		if s.AdvisorID == 0 || !ok {
			plan.Skipped = append(plan.Skipped, Skipped{s.StudentID, s.StudentName, "encadreur introuvable parmi les enseignants"})
			continue
		}
		president, ok := leastLoaded(teachers, load, func(t Teacher) bool {
			return t.ID != advisor.ID && t.Grade.CanPreside()
		})
		if !ok {
			plan.Skipped = append(plan.Skipped, Skipped{s.StudentID, s.StudentName, "aucun président éligible (Professeur ou Maître de conférences)"})
			continue
		}
		rapporteur, ok := leastLoaded(teachers, load, func(t Teacher) bool {
			return t.ID != advisor.ID && t.ID != president.ID
		})
		if !ok {
			plan.Skipped = append(plan.Skipped, Skipped{s.StudentID, s.StudentName, "aucun rapporteur disponible"})
			continue
		}

		load[president.ID]++
		load[rapporteur.ID]++
		load[advisor.ID]++

		at, room := cur.current()
		plan.Proposals = append(plan.Proposals, JuryProposal{
			StudentID:       s.StudentID,
			StudentName:     s.StudentName,
			ScheduledAt:     at,
			Date:            at.Format("2006-01-02"),
			Time:            at.Format("15:04"),
			Room:            room,
			DurationMinutes: int(p.Duration / time.Minute),
			PresidentID:     president.ID,
			PresidentName:   president.Name,
			RapporteurID:    rapporteur.ID,
			RapporteurName:  rapporteur.Name,
			ExaminateurID:   advisor.ID,
			ExaminateurName: advisor.Name,
		})
		cur.advance()
	}
	return plan, nil
}

func leastLoaded(teachers []Teacher, load map[int64]int, eligible func(Teacher) bool) (Teacher, bool) {
	var best Teacher
	found := false
	for _, t := range teachers {
		if !eligible(t) {
			continue
		}
		if !found || load[t.ID] < load[best.ID] {
			best, found = t, true
		}
	}
	return best, found
}

// cursor hands out (time, room) pairs: rooms round-robin inside a slot, slots advance by
// duration+break, days advance on cap or cutoff and never land on a weekend.
type cursor struct {
	p          JuryParams
	day        time.Time
	slot       time.Time
	offset     time.Duration
	room       int
	slotsToday int
}

func newCursor(p JuryParams) *cursor {
	c := &cursor{p: p, offset: offsetOfDay(p.Start)}
	c.day = midnight(p.Start)
	c.slot = p.Start
	if isWeekend(c.day) {
		c.day = nextWeekday(c.day)
		c.slot = c.day.Add(c.offset)
	}
	return c
}

func (c *cursor) current() (time.Time, string) {
	return c.slot, c.p.Rooms[c.room]
}

func (c *cursor) advance() {
	c.room++
	if c.room < len(c.p.Rooms) {
		return
	}
	c.room = 0
	c.slotsToday++
	next := c.slot.Add(c.p.Duration + c.p.Break)
	if c.slotsToday >= c.p.DailyCap || next.Add(c.p.Duration).After(c.day.Add(c.p.dayEnd())) {
		c.day = nextWeekday(c.day)
		c.slot = c.day.Add(c.offset)
		c.slotsToday = 0
		return
	}
	c.slot = next
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func offsetOfDay(t time.Time) time.Duration {
	return t.Sub(midnight(t))
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func nextWeekday(day time.Time) time.Time {
	d := day.AddDate(0, 0, 1)
	for isWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func fmtOffset(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
