package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func TestDecideTheme(t *testing.T) {
	assert.NoError(t, DecideTheme(models.ThemePropose, models.ThemeValide, ""))
	assert.NoError(t, DecideTheme(models.ThemePropose, models.ThemeRefuse, ""))
	assert.NoError(t, DecideTheme(models.ThemePropose, models.ThemeValideAvecReserves, "revoir le plan"))

	assert.ErrorIs(t, DecideTheme(models.ThemePropose, models.ThemeValideAvecReserves, "  "), ErrThemeDecision)
	assert.ErrorIs(t, DecideTheme(models.ThemeValide, models.ThemeRefuse, ""), ErrThemeDecision)
	assert.ErrorIs(t, DecideTheme(models.ThemePropose, models.ThemePropose, ""), ErrThemeDecision)
}

var grades = map[int64]models.Grade{
	1: models.GradeProfesseur,
	2: models.GradeMaitreConferences,
	3: models.GradeMaitreAssistant,
	4: models.GradeAssistant,
}

func TestCheckPanel(t *testing.T) {
	require.NoError(t, CheckPanel(Panel{1, 3, 4}, 4, grades))

	cases := map[string]struct {
		p       Panel
		advisor int64
	}{
		"missing member":        {Panel{1, 0, 4}, 4},
		"duplicate":             {Panel{1, 1, 4}, 4},
		"unknown teacher":       {Panel{1, 3, 9}, 9},
		"president rank":        {Panel{3, 1, 4}, 4},
		"advisor as rapporteur": {Panel{1, 4, 3}, 4},
		"advisor as president":  {Panel{2, 3, 4}, 2},
		"advisor not on panel":  {Panel{1, 2, 3}, 4},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, CheckPanel(tc.p, tc.advisor, grades), ErrJuryMembers)
		})
	}
}

func at(day, h, m int) time.Time {
	return time.Date(2025, time.June, day, h, m, 0, 0, time.UTC)
}

func TestCheckSlot(t *testing.T) {
	ok := Slot{Start: at(2, 8, 0), Duration: time.Hour, Room: "A1"}
	assert.NoError(t, CheckSlot(ok))

	sat := ok
	sat.Start = at(7, 8, 0)
	assert.ErrorIs(t, CheckSlot(sat), ErrJurySlot)

	late := ok
	late.Start = at(2, 17, 30)
	assert.ErrorIs(t, CheckSlot(late), ErrJurySlot)

	noRoom := ok
	noRoom.Room = " "
	assert.ErrorIs(t, CheckSlot(noRoom), ErrJurySlot)
}

func TestCheckOverlaps(t *testing.T) {
	a := Slot{StudentID: 1, Panel: Panel{1, 3, 4}, Start: at(2, 8, 0), Duration: time.Hour, Room: "A1"}
	b := Slot{StudentID: 2, Panel: Panel{2, 5, 6}, Start: at(2, 8, 0), Duration: time.Hour, Room: "B2"}
	assert.NoError(t, CheckOverlaps([]Slot{a, b}, nil))

	sameRoom := b
	sameRoom.Room = "a1"
	assert.ErrorIs(t, CheckOverlaps([]Slot{a, sameRoom}, nil), ErrJuryOverlap)

	sharedTeacher := b
	sharedTeacher.Panel = Panel{2, 5, 3}
	assert.ErrorIs(t, CheckOverlaps([]Slot{a, sharedTeacher}, nil), ErrJuryOverlap)

	later := sameRoom
	later.Start = at(2, 9, 0)
	assert.NoError(t, CheckOverlaps([]Slot{a}, []Slot{later}), "back to back is fine")

	assert.ErrorIs(t, CheckOverlaps([]Slot{sameRoom}, []Slot{a}), ErrJuryOverlap)
}
