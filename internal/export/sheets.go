package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

type Kind string

const (
	Teachers Kind = "teachers"
	Students Kind = "students"
	Jurys    Kind = "jurys"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Teachers, Students, Jurys:
		return k, nil
	}
	return "", fmt.Errorf("export: type inconnu %q", s)
}

// Template and export columns; import expects exactly these headers on the first sheet.
var (
	TeacherColumns = []string{"Matricule", "Nom", "Prénom", "Email", "Grade", "Spécialité", "Département"}
	StudentColumns = []string{"Matricule", "Nom", "Prénom", "Email", "Niveau", "Année académique", "Département"}
	JuryColumns    = []string{"Matricule étudiant", "Date", "Heure", "Durée (min)", "Salle", "Email président", "Email rapporteur", "Email examinateur"}
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func (k Kind) Columns() []string {
	switch k {
	case Teachers:
		return TeacherColumns
	case Students:
		return StudentColumns
	case Jurys:
		return JuryColumns
	}
	return nil
}

// Title is the sheet title and the base of the download file name.
func (k Kind) Title() string {
	switch k {
	case Teachers:
		return "Enseignants"
	case Students:
		return "Etudiants"
	case Jurys:
		return "Jurys"
	}
	return string(k)
}

// Template returns an empty data sheet followed by a help sheet.
func Template(k Kind) []SheetSpec {
	help := SheetSpec{Title: "Aide", Header: []string{"Colonne", "Valeurs attendues"}}
	switch k {
	case Teachers:
		help.Rows = [][]string{
			{"Grade", "Professeur, Maitre_Conferences, Maitre_Assistant, Assistant"},
			{"Département", "code du département (ex. INFO)"},
		}
	case Students:
		help.Rows = [][]string{
			{"Niveau", "ex. Master 2"},
			{"Année académique", "ex. 2024-2025"},
			{"Département", "code du département (ex. INFO)"},
		}
	case Jurys:
		help.Rows = [][]string{
			{"Date", "AAAA-MM-JJ (jour ouvré)"},
			{"Heure", "HH:MM, fin avant 18:00"},
			{"Email examinateur", "l'encadreur de l'étudiant"},
		}
	}
	return []SheetSpec{{Title: k.Title(), Header: k.Columns()}, help}
}

func TeacherSheet(ts []models.Teacher) SheetSpec {
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []string{t.Matricule, t.LastName, t.FirstName, t.Email, string(t.Grade), t.Specialty, t.DepartmentCode})
	}
	return SheetSpec{Title: Teachers.Title(), Header: TeacherColumns, Rows: rows}
}

func StudentSheet(ss []models.StudentProfile) SheetSpec {
	rows := make([][]string, 0, len(ss))
	for _, s := range ss {
		rows = append(rows, []string{s.Matricule, s.LastName, s.FirstName, s.Email, s.Level, s.AcademicYear, s.DepartmentCode})
	}
	return SheetSpec{Title: Students.Title(), Header: StudentColumns, Rows: rows}
}

func JurySheet(js []models.JuryView, loc *time.Location) SheetSpec {
	rows := make([][]string, 0, len(js))
	for _, j := range js {
		at := j.ScheduledAt.In(loc)
		rows = append(rows, []string{
			j.StudentMatricule,
			at.Format(dateLayout),
			at.Format(timeLayout),
			strconv.Itoa(j.DurationMinutes),
			j.Room,
			j.PresidentEmail,
			j.RapporteurEmail,
			j.ExaminateurEmail,
		})
	}
	return SheetSpec{Title: Jurys.Title(), Header: JuryColumns, Rows: rows}
}
