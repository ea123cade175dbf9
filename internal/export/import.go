package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

var (
	ErrBadFile   = errors.New("export: fichier xlsx illisible")
	ErrBadHeader = errors.New("export: en-têtes inattendus")
	// ErrSkip marks a line that was left out on purpose (already present); reported as a warning.
	ErrSkip = errors.New("export: ligne ignorée")
)

type LineMessage struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResult struct {
	SuccessCount int           `json:"successCount"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`
	Errors       []LineMessage `json:"errors"`
	Warnings     []LineMessage `json:"warnings"`
	Success      []LineMessage `json:"success"`
}

func NewImportResult() *ImportResult {
	return &ImportResult{Errors: []LineMessage{}, Warnings: []LineMessage{}, Success: []LineMessage{}}
}

func (r *ImportResult) Fail(line int, msg string) {
	r.Errors = append(r.Errors, LineMessage{line, msg})
	r.ErrorCount++
}

func (r *ImportResult) Warn(line int, msg string) {
	r.Warnings = append(r.Warnings, LineMessage{line, msg})
	r.WarningCount++
}

func (r *ImportResult) Succeed(line int, msg string) {
	r.Success = append(r.Success, LineMessage{line, msg})
	r.SuccessCount++
}

// Row is one parsed data line; Line is the spreadsheet row number (header is line 1).
type Row[T any] struct {
	Line  int
	Value T
}

// Apply runs fn for every row and records its outcome: nil is a success labelled by
// the returned text, ErrSkip a warning, any other error a line error.
func Apply[T any](res *ImportResult, rows []Row[T], fn func(T) (string, error)) {
	for _, row := range rows {
		label, err := fn(row.Value)
		switch {
		case err == nil:
			res.Succeed(row.Line, label)
		case errors.Is(err, ErrSkip):
			res.Warn(row.Line, strings.TrimPrefix(err.Error(), ErrSkip.Error()+": "))
		default:
			res.Fail(row.Line, err.Error())
		}
	}
}

type rawRow struct {
	line  int
	cells []string
}

// readSheet returns the data rows of the first sheet after checking its header.
// Fully blank rows are dropped; short rows are padded.
func readSheet(r io.Reader, header []string) ([]rawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrBadFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	if len(rows) == 0 || !headerMatches(rows[0], header) {
		return nil, fmt.Errorf("%w: attendu %s", ErrBadHeader, strings.Join(header, ", "))
	}

	out := make([]rawRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		blank := true
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
			if cells[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		for len(cells) < len(header) {
			cells = append(cells, "")
		}
		out = append(out, rawRow{line: i + 2, cells: cells})
	}
	return out, nil
}

func headerMatches(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i, w := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), w) {
			return false
		}
	}
	for _, extra := range got[len(want):] {
		if strings.TrimSpace(extra) != "" {
			return false
		}
	}
	return true
}

type TeacherRow struct {
	Matricule  string       `json:"matricule" validate:"required,max=32"`
	LastName   string       `json:"nom" validate:"required,max=100"`
	FirstName  string       `json:"prenom" validate:"required,max=100"`
	Email      string       `json:"email" validate:"required,email"`
	Grade      models.Grade `json:"grade" validate:"required,oneof=Professeur Maitre_Conferences Maitre_Assistant Assistant"`
	Specialty  string       `json:"specialite" validate:"max=150"`
	Department string       `json:"departement" validate:"required,max=16"`
}

type StudentRow struct {
	Matricule    string `json:"matricule" validate:"required,max=32"`
	LastName     string `json:"nom" validate:"required,max=100"`
	FirstName    string `json:"prenom" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Level        string `json:"niveau" validate:"required,max=50"`
	AcademicYear string `json:"annee_academique" validate:"required,max=20"`
	Department   string `json:"departement" validate:"required,max=16"`
}

type JuryRow struct {
	StudentMatricule string    `json:"matricule_etudiant" validate:"required"`
	ScheduledAt      time.Time `json:"date" validate:"required"`
	DurationMinutes  int       `json:"duree" validate:"min=1,max=480"`
	Room             string    `json:"salle" validate:"required,max=50"`
	PresidentEmail   string    `json:"email_president" validate:"required,email"`
	RapporteurEmail  string    `json:"email_rapporteur" validate:"required,email"`
	ExaminateurEmail string    `json:"email_examinateur" validate:"required,email"`
}

// ParseTeachers reads a teachers workbook. Lines failing validation are recorded in
// res and left out of the returned rows.
func ParseTeachers(r io.Reader, res *ImportResult) ([]Row[TeacherRow], error) {
	raw, err := readSheet(r, TeacherColumns)
	if err != nil {
		return nil, err
	}
	out := make([]Row[TeacherRow], 0, len(raw))
	for _, rr := range raw {
		c := rr.cells
		v := TeacherRow{
			Matricule:  c[0],
			LastName:   c[1],
			FirstName:  c[2],
			Email:      strings.ToLower(c[3]),
			Grade:      models.Grade(c[4]),
			Specialty:  c[5],
			Department: strings.ToUpper(c[6]),
		}
		if err := httpx.Validate(v); err != nil {
			res.Fail(rr.line, httpx.FirstMessage(err))
			continue
		}
		out = append(out, Row[TeacherRow]{rr.line, v})
	}
	return out, nil
}

func ParseStudents(r io.Reader, res *ImportResult) ([]Row[StudentRow], error) {
	raw, err := readSheet(r, StudentColumns)
	if err != nil {
		return nil, err
	}
	out := make([]Row[StudentRow], 0, len(raw))
	for _, rr := range raw {
		c := rr.cells
		v := StudentRow{
			Matricule:    c[0],
			LastName:     c[1],
			FirstName:    c[2],
			Email:        strings.ToLower(c[3]),
			Level:        c[4],
			AcademicYear: c[5],
			Department:   strings.ToUpper(c[6]),
		}
		if err := httpx.Validate(v); err != nil {
			res.Fail(rr.line, httpx.FirstMessage(err))
			continue
		}
		out = append(out, Row[StudentRow]{rr.line, v})
	}
	return out, nil
}

// ParseJurys reads a jurys workbook; date and time are interpreted in loc.
func ParseJurys(r io.Reader, loc *time.Location, res *ImportResult) ([]Row[JuryRow], error) {
	raw, err := readSheet(r, JuryColumns)
	if err != nil {
		return nil, err
	}
	out := make([]Row[JuryRow], 0, len(raw))
	for _, rr := range raw {
		c := rr.cells
		at, err := parseDateTime(c[1], c[2], loc)
		if err != nil {
			res.Fail(rr.line, err.Error())
			continue
		}
		dur, err := strconv.Atoi(c[3])
		if err != nil {
			res.Fail(rr.line, fmt.Sprintf("durée invalide %q", c[3]))
			continue
		}
		v := JuryRow{
			StudentMatricule: c[0],
			ScheduledAt:      at,
			DurationMinutes:  dur,
			Room:             c[4],
			PresidentEmail:   strings.ToLower(c[5]),
			RapporteurEmail:  strings.ToLower(c[6]),
			ExaminateurEmail: strings.ToLower(c[7]),
		}
		if err := httpx.Validate(v); err != nil {
			res.Fail(rr.line, httpx.FirstMessage(err))
			continue
		}
		out = append(out, Row[JuryRow]{rr.line, v})
	}
	return out, nil
}

var dateLayouts = []string{dateLayout, "02/01/2006", "2/1/2006", "01-02-06"}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	var d time.Time
	var err error
	for _, layout := range dateLayouts {
		if d, err = time.ParseInLocation(layout, date, loc); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("date invalide %q (attendu AAAA-MM-JJ)", date)
	}
	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("heure invalide %q (attendu HH:MM)", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// Skip returns an ErrSkip carrying msg.
func Skip(msg string) error { return fmt.Errorf("%w: %s", ErrSkip, msg) }
