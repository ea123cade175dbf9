// Package memoapi is the HTTP API of the thesis management application: departments,
// teachers, students, themes, encadrements and jurys.
package memoapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/authz"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

// Store is the persistence used by the handlers; *db.Store implements it.
type Store interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	SetTelegramChat(ctx context.Context, userID int64, chatID *int64) error

	ListDepartments(ctx context.Context) ([]models.Department, error)
	DepartmentByID(ctx context.Context, id int64) (models.Department, error)
	DepartmentByCode(ctx context.Context, code string) (models.Department, error)
	DepartmentOfChief(ctx context.Context, userID int64) (models.Department, error)
	CreateDepartment(ctx context.Context, code, name string) (models.Department, error)
	UpdateDepartment(ctx context.Context, id int64, code, name string) error
	DeleteDepartment(ctx context.Context, id int64) error
	AssignChief(ctx context.Context, departmentID, teacherID int64) error

	ListTeachers(ctx context.Context, departmentID int64, search string) ([]models.Teacher, error)
	TeacherByID(ctx context.Context, id int64) (models.Teacher, error)
	TeacherByUserID(ctx context.Context, userID int64) (models.Teacher, error)
	TeacherByMatricule(ctx context.Context, matricule string) (models.Teacher, error)
	TeacherByEmail(ctx context.Context, email string) (models.Teacher, error)
	CreateTeacher(ctx context.Context, t models.Teacher, passwordHash string) (models.Teacher, error)
	UpdateTeacher(ctx context.Context, t models.Teacher) error
	DeleteTeacher(ctx context.Context, id int64) error

	ListStudents(ctx context.Context, departmentID int64, search string) ([]models.StudentProfile, error)
	StudentByID(ctx context.Context, id int64) (models.StudentProfile, error)
	StudentByUserID(ctx context.Context, userID int64) (models.StudentProfile, error)
	StudentByMatricule(ctx context.Context, matricule string) (models.StudentProfile, error)
	CreateStudent(ctx context.Context, st models.StudentProfile, passwordHash string) (models.StudentProfile, error)
	UpdateStudent(ctx context.Context, st models.StudentProfile) error
	DeleteStudent(ctx context.Context, id int64) error

	ProposeTheme(ctx context.Context, studentID, teacherID int64, title, description string) (models.Theme, error)
	ThemeByID(ctx context.Context, id int64) (models.Theme, error)
	ThemesOfStudent(ctx context.Context, studentID int64) ([]models.Theme, error)
	ListThemes(ctx context.Context, teacherID, departmentID int64, status models.ThemeStatus) ([]models.Theme, error)
	DecideTheme(ctx context.Context, id int64, decision models.ThemeStatus, reserves string) (models.Theme, error)

	ListEncadrements(ctx context.Context, departmentID int64) ([]models.Encadrement, error)
	SupervisionsOf(ctx context.Context, teacherID int64) ([]models.Encadrement, error)
	AssignAdvisor(ctx context.Context, studentID, teacherID int64) error
	CommitAdvisors(ctx context.Context, proposals []planning.AdvisorProposal) error
	AdvisorCandidates(ctx context.Context, departmentID int64) ([]planning.AdvisorCandidate, error)
	AdvisorLoads(ctx context.Context) (map[int64]int, error)

	ListJurys(ctx context.Context, departmentID int64) ([]models.JuryView, error)
	JuryByID(ctx context.Context, id int64) (models.JuryView, error)
	JuryOfStudent(ctx context.Context, studentID int64) (models.JuryView, error)
	JuryDutiesOf(ctx context.Context, teacherID int64) ([]models.JuryView, error)
	EligibleStudents(ctx context.Context, departmentID int64) ([]models.EligibleStudent, error)
	PlanningTeachers(ctx context.Context, departmentID int64) ([]planning.Teacher, error)
	Participations(ctx context.Context) ([]planning.Participation, error)
	CreateJurys(ctx context.Context, slots []academic.Slot) ([]int64, error)
	MarkJuryDone(ctx context.Context, id int64) error
	DeleteJury(ctx context.Context, id int64) error
}

// Convoker sends the convocations of newly created jurys; *notify.Notifier implements it.
type Convoker interface {
	Convocations(ctx context.Context, juryIDs []int64)
}

type nopConvoker struct{}

func (nopConvoker) Convocations(context.Context, []int64) {}

type Handler struct {
	store   Store
	tokens  *auth.Issuer
	notify  Convoker
	loc     *time.Location
	log     *zap.Logger
	now     func() time.Time
	isAdmin func(email string) bool
}

type Deps struct {
	Store    Store
	Tokens   *auth.Issuer
	Notifier Convoker
	Location *time.Location
	Log      *zap.Logger
	// AdminEmail reports accounts that are always treated as admins.
	AdminEmail func(email string) bool
}

func New(d Deps) *Handler {
	if d.Notifier == nil {
		d.Notifier = nopConvoker{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.AdminEmail == nil {
		d.AdminEmail = func(string) bool { return false }
	}
	return &Handler{
		store:   d.Store,
		tokens:  d.Tokens,
		notify:  d.Notifier,
		loc:     d.Location,
		log:     d.Log,
		now:     time.Now,
		isAdmin: d.AdminEmail,
	}
}

const (
	resDirectory      = "directory"
	resAdministration = "administration"
	resDepartment     = "department"
	resSupervision    = "supervision"
	resStudent        = "student"
)

func roles(rs ...models.Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Gate returns the policies of the mémoires resources.
func Gate() *authz.Gate {
	return authz.NewGate().
		Register(resDirectory, authz.Roles{authz.Read: roles(models.RoleStudent, models.RoleTeacher, models.RoleChief, models.RoleAdmin)}).
		Register(resAdministration, authz.Roles{authz.Manage: roles(models.RoleAdmin)}).
		Register(resDepartment, authz.Roles{authz.Manage: roles(models.RoleChief, models.RoleAdmin)}).
		Register(resSupervision, authz.Roles{authz.Manage: roles(models.RoleTeacher, models.RoleChief)}).
		Register(resStudent, authz.Roles{authz.Manage: roles(models.RoleStudent)})
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r fiber.Router) {
	g := Gate()
	api := r.Group("/api")
	api.Post("/auth/login", h.Login)

	authed := api.Group("", auth.Authenticate(h.tokens, h.elevate))
	authed.Get("/me", h.Me)
	authed.Put("/me/telegram", h.LinkTelegram)

	// guards are per route: a Group("") guard would also wrap every route registered after it
	dir := g.Require(resDirectory, authz.Read)
	authed.Get("/departments", dir, h.ListDepartments)
	authed.Get("/teachers", dir, h.ListTeachers)

	adm := g.Require(resAdministration, authz.Manage)
	authed.Post("/departments", adm, h.CreateDepartment)
	authed.Put("/departments/:id", adm, h.UpdateDepartment)
	authed.Delete("/departments/:id", adm, h.DeleteDepartment)
	authed.Put("/departments/:id/chief", adm, h.AssignChief)
	authed.Post("/teachers", adm, h.CreateTeacher)
	authed.Put("/teachers/:id", adm, h.UpdateTeacher)
	authed.Delete("/teachers/:id", adm, h.DeleteTeacher)
	authed.Post("/students", adm, h.CreateStudent)
	authed.Put("/students/:id", adm, h.UpdateStudent)
	authed.Delete("/students/:id", adm, h.DeleteStudent)
	authed.Post("/import/:kind", adm, h.Import)
	authed.Get("/templates/:kind", adm, h.Template)

	dept := g.Require(resDepartment, authz.Manage)
	authed.Get("/students", dept, h.ListStudents)
	authed.Get("/export/:kind", dept, h.Export)
	authed.Get("/themes", dept, h.ListThemes)
	authed.Get("/encadrements", dept, h.ListEncadrements)
	authed.Post("/encadrements", dept, h.AssignAdvisor)
	authed.Post("/encadrements/preview", dept, h.PreviewAdvisors)
	authed.Post("/encadrements/commit", dept, h.CommitAdvisors)
	authed.Get("/jurys", dept, h.ListJurys)
	authed.Get("/jurys/eligible", dept, h.EligibleStudents)
	authed.Post("/jurys", dept, h.CreateJury)
	authed.Post("/jurys/preview", dept, h.PreviewJurys)
	authed.Post("/jurys/commit", dept, h.CommitJurys)
	authed.Post("/jurys/:id/done", dept, h.MarkJuryDone)
	authed.Delete("/jurys/:id", dept, h.DeleteJury)

	sup := g.Require(resSupervision, authz.Manage)
	authed.Get("/me/themes", sup, h.MyThemesToReview)
	authed.Post("/me/themes/:id/decision", sup, h.DecideTheme)
	authed.Get("/me/supervisions", sup, h.MySupervisions)
	authed.Get("/me/jury-duties", sup, h.MyJuryDuties)

	stu := g.Require(resStudent, authz.Manage)
	authed.Post("/me/theme", stu, h.ProposeTheme)
	authed.Get("/me/theme", stu, h.MyTheme)
	authed.Get("/me/jury", stu, h.MyJury)
}

func (h *Handler) elevate(email, role string) string {
	if h.isAdmin(email) {
		return string(models.RoleAdmin)
	}
	return role
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(authz.SubjectFrom(c.UserContext()).ID, 10, 64)
	if err != nil {
		return 0, httpx.Unauthorized()
	}
	return id, nil
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.BadRequest("Identifiant invalide")
	}
	return id, nil
}

// scope returns the department the caller works on: the one a chief heads, or the
// optional department_id filter for admins (0 = all departments).
func (h *Handler) scope(c *fiber.Ctx) (int64, error) {
	s := authz.SubjectFrom(c.UserContext())
	if s.Role == string(models.RoleAdmin) {
		id, err := strconv.ParseInt(c.Query("department_id", "0"), 10, 64)
		if err != nil || id < 0 {
			return 0, httpx.BadRequest("Département invalide")
		}
		return id, nil
	}
	uid, err := userID(c)
	if err != nil {
		return 0, err
	}
	d, err := h.store.DepartmentOfChief(c.UserContext(), uid)
	if errors.Is(err, db.ErrNotFound) {
		return 0, httpx.Forbidden()
	}
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// inScope fails with 404 when the student is outside the caller's department.
func (h *Handler) inScope(ctx context.Context, dept, studentID int64) error {
	st, err := h.store.StudentByID(ctx, studentID)
	if err != nil {
		return err
	}
	if dept != 0 && st.DepartmentID != dept {
		return httpx.NotFound("Étudiant introuvable")
	}
	return nil
}

func (h *Handler) currentTeacher(c *fiber.Ctx) (models.Teacher, error) {
	uid, err := userID(c)
	if err != nil {
		return models.Teacher{}, err
	}
	t, err := h.store.TeacherByUserID(c.UserContext(), uid)
	if errors.Is(err, db.ErrNotFound) {
		return models.Teacher{}, httpx.Forbidden()
	}
	return t, err
}

func (h *Handler) currentStudent(c *fiber.Ctx) (models.StudentProfile, error) {
	uid, err := userID(c)
	if err != nil {
		return models.StudentProfile{}, err
	}
	st, err := h.store.StudentByUserID(c.UserContext(), uid)
	if errors.Is(err, db.ErrNotFound) {
		return models.StudentProfile{}, httpx.Forbidden()
	}
	return st, err
}
