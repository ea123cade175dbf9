package memoapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/metrics"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

func (h *Handler) ListJurys(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListJurys(c.UserContext(), dept)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

// EligibleStudents lists students with a validated theme and advisor and no jury.
func (h *Handler) EligibleStudents(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	out, err := h.store.EligibleStudents(c.UserContext(), dept)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type slotRequest struct {
	StudentID       int64     `json:"student_id" validate:"required,gt=0"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=480"`
	Room            string    `json:"room" validate:"required,max=50"`
	academic.Panel
}

// slot reads scheduled_at in the campus zone whatever offset the client sent.
func (r slotRequest) slot(loc *time.Location) (academic.Slot, error) {
	if r.ScheduledAt.IsZero() {
		return academic.Slot{}, httpx.BadRequest("Date de soutenance manquante")
	}
	return academic.Slot{
		StudentID: r.StudentID,
		Panel:     r.Panel,
		Start:     r.ScheduledAt.In(loc),
		Duration:  time.Duration(r.DurationMinutes) * time.Minute,
		Room:      r.Room,
	}, nil
}

// CreateJury schedules one defense by hand; the same checks as a committed preview apply.
func (h *Handler) CreateJury(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req slotRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.inScope(ctx, dept, req.StudentID); err != nil {
		return err
	}
	slot, err := req.slot(h.loc)
	if err != nil {
		return err
	}
	ids, err := h.store.CreateJurys(ctx, []academic.Slot{slot})
	if err != nil {
		return err
	}
	h.log.Info("jury created", zap.Int64("jury_id", ids[0]), zap.Int64("student_id", req.StudentID))
	h.notify.Convocations(ctx, ids)

	j, err := h.store.JuryByID(ctx, ids[0])
	if err != nil {
		return err
	}
	return httpx.Created(c, j)
}

type juryPreviewRequest struct {
	StartDate       string   `json:"start_date" validate:"required"`
	StartTime       string   `json:"start_time" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,min=1,max=480"`
	BreakMinutes    int      `json:"break_minutes" validate:"min=0,max=240"`
	DailyCap        int      `json:"daily_cap" validate:"required,min=1,max=20"`
	Rooms           []string `json:"rooms" validate:"required,min=1,max=20,dive,required,max=50"`
}

func (r juryPreviewRequest) params(loc *time.Location) (planning.JuryParams, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", r.StartDate+" "+r.StartTime, loc)
	if err != nil {
		return planning.JuryParams{}, httpx.BadRequest("Date ou heure de début invalide (AAAA-MM-JJ, HH:MM)")
	}
	return planning.JuryParams{
		Start:    start,
		Duration: time.Duration(r.DurationMinutes) * time.Minute,
		Break:    time.Duration(r.BreakMinutes) * time.Minute,
		DailyCap: r.DailyCap,
		Rooms:    r.Rooms,
	}, nil
}

// PreviewJurys proposes a panel and a slot for every eligible student of the scope.
// Nothing is written.
func (h *Handler) PreviewJurys(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req juryPreviewRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	params, err := req.params(h.loc)
	if err != nil {
		return err
	}

	plan, err := planning.PreviewJurys(c.UserContext(), h.store, dept, params)
	if err != nil {
		return err
	}
	metrics.JuryPreviews.Observe(float64(len(plan.Proposals)))
	return httpx.OK(c, plan)
}

type juryCommitRequest struct {
	Proposals []slotRequest `json:"proposals" validate:"required,min=1,max=500,dive"`
}

// CommitJurys stores previewed (possibly edited) proposals in one transaction. Every
// rule is checked again by the store; one bad line rejects the batch.
func (h *Handler) CommitJurys(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	var req juryCommitRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	slots := make([]academic.Slot, 0, len(req.Proposals))
	for i, p := range req.Proposals {
		if err := h.inScope(ctx, dept, p.StudentID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return httpx.BadRequest(fmt.Sprintf("ligne %d: étudiant %d introuvable", i+1, p.StudentID))
			}
			return err
		}
		slot, err := p.slot(h.loc)
		if err != nil {
			return err
		}
		slots = append(slots, slot)
	}
	ids, err := h.store.CreateJurys(ctx, slots)
	if err != nil {
		return err
	}
	h.log.Info("jury schedule committed", zap.Int("count", len(ids)))
	h.notify.Convocations(ctx, ids)
	return httpx.Message(c, fmt.Sprintf("%d jury(s) programmé(s)", len(ids)), fiber.Map{"ids": ids})
}

func (h *Handler) juryInScope(c *fiber.Ctx) (int64, error) {
	dept, err := h.scope(c)
	if err != nil {
		return 0, err
	}
	id, err := paramID(c)
	if err != nil {
		return 0, err
	}
	ctx := c.UserContext()
	j, err := h.store.JuryByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := h.inScope(ctx, dept, j.StudentID); err != nil {
		return 0, err
	}
	return id, nil
}

// MarkJuryDone closes a defense that took place.
func (h *Handler) MarkJuryDone(c *fiber.Ctx) error {
	id, err := h.juryInScope(c)
	if err != nil {
		return err
	}
	if err := h.store.MarkJuryDone(c.UserContext(), id); err != nil {
		return err
	}
	h.log.Info("jury done", zap.Int64("jury_id", id))
	return httpx.Message(c, "Soutenance terminée", fiber.Map{"id": id})
}

// DeleteJury removes a jury that has not taken place yet.
func (h *Handler) DeleteJury(c *fiber.Ctx) error {
	id, err := h.juryInScope(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteJury(c.UserContext(), id); err != nil {
		return err
	}
	h.log.Info("jury deleted", zap.Int64("jury_id", id))
	return httpx.Message(c, "Jury supprimé", fiber.Map{"id": id})
}

// MyJury is the caller's defense.
func (h *Handler) MyJury(c *fiber.Ctx) error {
	st, err := h.currentStudent(c)
	if err != nil {
		return err
	}
	j, err := h.store.JuryOfStudent(c.UserContext(), st.ID)
	if errors.Is(err, db.ErrNotFound) {
		return httpx.NotFound("Aucune soutenance programmée")
	}
	if err != nil {
		return err
	}
	return httpx.OK(c, j)
}

// MyJuryDuties lists the jurys the caller sits on.
func (h *Handler) MyJuryDuties(c *fiber.Ctx) error {
	t, err := h.currentTeacher(c)
	if err != nil {
		return err
	}
	out, err := h.store.JuryDutiesOf(c.UserContext(), t.ID)
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}
