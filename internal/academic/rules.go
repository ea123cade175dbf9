// Package academic holds the thesis-management rules shared by the HTTP handlers,
// the importer and the scheduler commit path.
package academic

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

var (
	ErrThemeDecision = errors.New("academic: invalid theme decision")
	ErrJuryMembers   = errors.New("academic: invalid jury members")
	ErrJurySlot      = errors.New("academic: invalid jury slot")
	ErrJuryOverlap   = errors.New("academic: overlapping jurys")
	ErrNotEligible   = errors.New("academic: student not eligible")
)

// DecideTheme checks a teacher's decision on a proposed theme.
func DecideTheme(current, decision models.ThemeStatus, reserves string) error {
	if current != models.ThemePropose {
		return fmt.Errorf("%w: le thème est déjà %s", ErrThemeDecision, current)
	}
	switch decision {
	case models.ThemeValide, models.ThemeRefuse:
		return nil
	case models.ThemeValideAvecReserves:
		if strings.TrimSpace(reserves) == "" {
			return fmt.Errorf("%w: les réserves sont obligatoires", ErrThemeDecision)
		}
		return nil
	}
	return fmt.Errorf("%w: décision %q inconnue", ErrThemeDecision, decision)
}

// Panel is the three members of one jury.
type Panel struct {
	PresidentID   int64 `json:"president_id" validate:"required"`
	RapporteurID  int64 `json:"rapporteur_id" validate:"required"`
	ExaminateurID int64 `json:"examinateur_id" validate:"required"`
}

func (p Panel) Members() []int64 {
	return []int64{p.PresidentID, p.RapporteurID, p.ExaminateurID}
}

// CheckPanel enforces three distinct known teachers, a president of professor or
// associate rank, and the student's advisor in the examiner seat.
func CheckPanel(p Panel, advisorID int64, grades map[int64]models.Grade) error {
	seen := map[int64]bool{}
	for _, id := range p.Members() {
		if id == 0 {
			return fmt.Errorf("%w: les trois membres sont obligatoires", ErrJuryMembers)
		}
		if _, ok := grades[id]; !ok {
			return fmt.Errorf("%w: enseignant %d introuvable", ErrJuryMembers, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: les trois membres doivent être distincts", ErrJuryMembers)
		}
		seen[id] = true
	}
	if !grades[p.PresidentID].CanPreside() {
		return fmt.Errorf("%w: le président doit être Professeur ou Maître de conférences", ErrJuryMembers)
	}
	if advisorID != 0 && p.ExaminateurID != advisorID {
		return fmt.Errorf("%w: l'examinateur doit être l'encadreur", ErrJuryMembers)
	}
	return nil
}

// Slot is a scheduled defense used for conflict checks.
type Slot struct {
	StudentID int64
	Panel     Panel
	Start     time.Time
	Duration  time.Duration
	Room      string
}

func (s Slot) End() time.Time { return s.Start.Add(s.Duration) }

// CheckSlot rejects weekend defenses, non-positive durations, blank rooms and defenses
// ending after the day end. Weekday and day end are read in the zone of Start, so callers
// convert client times to the campus zone first.
func CheckSlot(s Slot) error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: durée invalide", ErrJurySlot)
	}
	if strings.TrimSpace(s.Room) == "" {
		return fmt.Errorf("%w: salle obligatoire", ErrJurySlot)
	}
	if wd := s.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return fmt.Errorf("%w: %s tombe un week-end", ErrJurySlot, s.Start.Format("2006-01-02"))
	}
	y, m, d := s.Start.Date()
	dayEnd := time.Date(y, m, d, 0, 0, 0, 0, s.Start.Location()).Add(planning.DefaultDayEnd)
	if s.End().After(dayEnd) {
		return fmt.Errorf("%w: la soutenance se termine après 18:00", ErrJurySlot)
	}
	return nil
}

// CheckOverlaps reports the first pair of slots sharing a room or a teacher at the same time.
// Slots in existing are only compared against the new ones.
func CheckOverlaps(proposed, existing []Slot) error {
	all := append(append([]Slot{}, proposed...), existing...)
	for i := range proposed {
		a := proposed[i]
		for j := i + 1; j < len(all); j++ {
			b := all[j]
			if !a.Start.Before(b.End()) || !b.Start.Before(a.End()) {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(a.Room), strings.TrimSpace(b.Room)) {
				return fmt.Errorf("%w: salle %s occupée le %s", ErrJuryOverlap, a.Room, a.Start.Format("2006-01-02 15:04"))
			}
			for _, x := range a.Panel.Members() {
				for _, y := range b.Panel.Members() {
					if x == y {
						return fmt.Errorf("%w: enseignant %d convoqué deux fois le %s", ErrJuryOverlap, x, a.Start.Format("2006-01-02 15:04"))
					}
				}
			}
		}
	}
	return nil
}
