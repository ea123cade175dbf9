package models

import "time"

type Grade string

const (
	GradeProfesseur        Grade = "Professeur"
	GradeMaitreConferences Grade = "Maitre_Conferences"
	GradeMaitreAssistant   Grade = "Maitre_Assistant"
	GradeAssistant         Grade = "Assistant"
)

func (g Grade) Valid() bool {
	switch g {
	case GradeProfesseur, GradeMaitreConferences, GradeMaitreAssistant, GradeAssistant:
		return true
	}
	return false
}

// CanPreside reports whether the grade is professor or associate professor rank.
func (g Grade) CanPreside() bool {
	return g == GradeProfesseur || g == GradeMaitreConferences
}

type Department struct {
	ID             int64   `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	ChiefTeacherID *int64  `json:"chief_teacher_id,omitempty"`
	ChiefName      *string `json:"chief_name,omitempty"`
}

type Teacher struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	DepartmentID   int64  `json:"department_id"`
	DepartmentCode string `json:"department_code,omitempty"`
	Matricule      string `json:"matricule"`
	Grade          Grade  `json:"grade"`
	Specialty      string `json:"specialty"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
}

func (t Teacher) FullName() string {
	return User{FirstName: t.FirstName, LastName: t.LastName}.FullName()
}

type StudentProfile struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	DepartmentID   int64  `json:"department_id"`
	DepartmentCode string `json:"department_code,omitempty"`
	Matricule      string `json:"matricule"`
	Level          string `json:"level"`
	AcademicYear   string `json:"academic_year"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
}

func (s StudentProfile) FullName() string {
	return User{FirstName: s.FirstName, LastName: s.LastName}.FullName()
}

type ThemeStatus string

const (
	ThemePropose            ThemeStatus = "Propose"
	ThemeValide             ThemeStatus = "Valide"
	ThemeValideAvecReserves ThemeStatus = "Valide_Avec_Reserves"
	ThemeRefuse             ThemeStatus = "Refuse"
)

// Validated reports whether the theme counts as accepted for encadrement and jury purposes.
func (s ThemeStatus) Validated() bool {
	return s == ThemeValide || s == ThemeValideAvecReserves
}

type Theme struct {
	ID          int64       `json:"id"`
	StudentID   int64       `json:"student_id"`
	TeacherID   int64       `json:"teacher_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      ThemeStatus `json:"status"`
	Reserves    *string     `json:"reserves,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	DecidedAt   *time.Time  `json:"decided_at,omitempty"`
	StudentName string      `json:"student_name,omitempty"`
	TeacherName string      `json:"teacher_name,omitempty"`
}

type EncadrementStatus string

const (
	EncadrementEnAttente EncadrementStatus = "En_Attente"
	EncadrementValide    EncadrementStatus = "Valide"
	EncadrementRefuse    EncadrementStatus = "Refuse"
)

type Encadrement struct {
	ID          int64             `json:"id"`
	StudentID   int64             `json:"student_id"`
	TeacherID   int64             `json:"teacher_id"`
	ThemeID     *int64            `json:"theme_id,omitempty"`
	Status      EncadrementStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StudentName string            `json:"student_name,omitempty"`
	TeacherName string            `json:"teacher_name,omitempty"`
	ThemeTitle  *string           `json:"theme_title,omitempty"`
}

type JuryStatus string

const (
	JuryCree    JuryStatus = "Cree"
	JuryTermine JuryStatus = "Termine"
)

type Jury struct {
	ID              int64      `json:"id"`
	StudentID       int64      `json:"student_id"`
	PresidentID     int64      `json:"president_id"`
	RapporteurID    int64      `json:"rapporteur_id"`
	ExaminateurID   int64      `json:"examinateur_id"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Room            string     `json:"room"`
	Status          JuryStatus `json:"status"`
	ReminderSent    bool       `json:"reminder_sent"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JuryView is a jury with the names needed for tables, exports and notifications.
type JuryView struct {
	Jury
	StudentName      string `json:"student_name"`
	StudentMatricule string `json:"student_matricule"`
	ThemeTitle       string `json:"theme_title"`
	PresidentName    string `json:"president_name"`
	PresidentEmail   string `json:"president_email"`
	RapporteurName   string `json:"rapporteur_name"`
	RapporteurEmail  string `json:"rapporteur_email"`
	ExaminateurName  string `json:"examinateur_name"`
	ExaminateurEmail string `json:"examinateur_email"`
}

// EligibleStudent is a student with a validated theme and advisor and no jury yet.
type EligibleStudent struct {
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	Matricule    string `json:"matricule"`
	DepartmentID int64  `json:"department_id"`
	AdvisorID    int64  `json:"advisor_id"`
	AdvisorName  string `json:"advisor_name"`
	ThemeTitle   string `json:"theme_title"`
}
