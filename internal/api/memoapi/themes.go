package memoapi

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

func themeStatus(c *fiber.Ctx) (models.ThemeStatus, error) {
	st := models.ThemeStatus(c.Query("status"))
	switch st {
	case "", models.ThemePropose, models.ThemeValide, models.ThemeValideAvecReserves, models.ThemeRefuse:
		return st, nil
	}
	return "", httpx.BadRequest("Statut inconnu")
}

type proposeRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	TeacherID   int64  `json:"teacher_id" validate:"required,gt=0"`
}

// ProposeTheme submits the caller's theme to a teacher. A student keeps at most one
// theme that is not refused.
func (h *Handler) ProposeTheme(c *fiber.Ctx) error {
	st, err := h.currentStudent(c)
	if err != nil {
		return err
	}
	var req proposeRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.store.TeacherByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return httpx.BadRequest("Enseignant introuvable")
		}
		return err
	}
	th, err := h.store.ProposeTheme(ctx, st.ID, req.TeacherID, req.Title, req.Description)
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("Vous avez déjà un thème en cours")
	}
	if err != nil {
		return err
	}
	h.log.Info("theme proposed", zap.Int64("theme_id", th.ID), zap.Int64("student_id", st.ID), zap.Int64("teacher_id", req.TeacherID))
	return httpx.Created(c, th)
}

// MyTheme lists the caller's themes, latest first.
func (h *Handler) MyTheme(c *fiber.Ctx) error {
	st, err := h.currentStudent(c)
	if err != nil {
		return err
	}
	out, err := h.store.ThemesOfStudent(c.UserContext(), st.ID)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

func (h *Handler) MyThemesToReview(c *fiber.Ctx) error {
	t, err := h.currentTeacher(c)
	if err != nil {
		return err
	}
	status, err := themeStatus(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListThemes(c.UserContext(), t.ID, 0, status)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type decisionRequest struct {
	Decision models.ThemeStatus `json:"decision" validate:"required,oneof=Valide Valide_Avec_Reserves Refuse"`
	Reserves string             `json:"reserves" validate:"max=2000"`
}

// DecideTheme records the decision of the teacher the theme was proposed to.
// Validation makes that teacher the student's advisor.
func (h *Handler) DecideTheme(c *fiber.Ctx) error {
	t, err := h.currentTeacher(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	th, err := h.store.ThemeByID(ctx, id)
	if err != nil {
		return err
	}
	if th.TeacherID != t.ID {
		return httpx.NotFound("Thème introuvable")
	}
	th, err = h.store.DecideTheme(ctx, id, req.Decision, req.Reserves)
	if err != nil {
		return err
	}
	h.log.Info("theme decided", zap.Int64("theme_id", id), zap.String("decision", string(req.Decision)))
	return httpx.Message(c, "Décision enregistrée", th)
}

func (h *Handler) ListThemes(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	status, err := themeStatus(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListThemes(c.UserContext(), 0, dept, status)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

func (h *Handler) ListEncadrements(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListEncadrements(c.UserContext(), dept)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

func (h *Handler) MySupervisions(c *fiber.Ctx) error {
	t, err := h.currentTeacher(c)
	if err != nil {
		return err
	}
	out, err := h.store.SupervisionsOf(c.UserContext(), t.ID)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type advisorRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
}

// AssignAdvisor sets a student's advisor by hand; both must belong to the same department.
func (h *Handler) AssignAdvisor(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req advisorRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.inScope(ctx, dept, req.StudentID); err != nil {
		return err
	}
	if err := h.store.AssignAdvisor(ctx, req.StudentID, req.TeacherID); err != nil {
		return err
	}
	h.log.Info("advisor assigned", zap.Int64("student_id", req.StudentID), zap.Int64("teacher_id", req.TeacherID))
	return httpx.Message(c, "Encadreur affecté", req)
}

type advisorPreviewRequest struct {
	MaxPerTeacher int `json:"max_per_teacher" validate:"required,min=1,max=100"`
}

// PreviewAdvisors proposes an advisor for every student of the scope without one.
// Nothing is written.
func (h *Handler) PreviewAdvisors(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req advisorPreviewRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	students, err := h.store.AdvisorCandidates(ctx, dept)
	if err != nil {
		return err
	}
	teachers, err := h.store.PlanningTeachers(ctx, dept)
	if err != nil {
		return err
	}
	loads, err := h.store.AdvisorLoads(ctx)
	if err != nil {
		return err
	}
	plan, err := planning.PlanAdvisors(students, teachers, loads, req.MaxPerTeacher)
	if err != nil {
		return err
	}
	return httpx.OK(c, plan)
}

type advisorCommitRequest struct {
	Proposals []advisorRequest `json:"proposals" validate:"required,min=1,max=1000,dive"`
}

// CommitAdvisors stores previewed proposals in one transaction.
func (h *Handler) CommitAdvisors(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req advisorCommitRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	out := make([]planning.AdvisorProposal, 0, len(req.Proposals))
	for i, p := range req.Proposals {
		if err := h.inScope(ctx, dept, p.StudentID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return httpx.BadRequest(fmt.Sprintf("ligne %d: étudiant %d introuvable", i+1, p.StudentID))
			}
			return err
		}
		out = append(out, planning.AdvisorProposal{StudentID: p.StudentID, TeacherID: p.TeacherID})
	}
	if err := h.store.CommitAdvisors(ctx, out); err != nil {
		return err
	}
	h.log.Info("advisors committed", zap.Int("count", len(out)))
	return httpx.Message(c, fmt.Sprintf("%d encadrement(s) enregistré(s)", len(out)), fiber.Map{"count": len(out)})
}
