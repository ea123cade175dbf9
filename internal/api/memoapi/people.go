package memoapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func (h *Handler) ListDepartments(c *fiber.Ctx) error {
	out, err := h.store.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type departmentRequest struct {
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name" validate:"required,max=150"`
}

func (h *Handler) CreateDepartment(c *fiber.Ctx) error {
	var req departmentRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.store.CreateDepartment(c.UserContext(), strings.ToUpper(strings.TrimSpace(req.Code)), strings.TrimSpace(req.Name))
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("Ce code de département existe déjà")
	}
	if err != nil {
		return err
	}
	h.log.Info("department created", zap.Int64("department_id", d.ID), zap.String("code", d.Code))
	return httpx.Created(c, d)
}

func (h *Handler) UpdateDepartment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req departmentRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	err = h.store.UpdateDepartment(ctx, id, strings.ToUpper(strings.TrimSpace(req.Code)), strings.TrimSpace(req.Name))
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("Ce code de département existe déjà")
	}
	if err != nil {
		return err
	}
	d, err := h.store.DepartmentByID(ctx, id)
	if err != nil {
		return err
	}
	return httpx.Message(c, "Département mis à jour", d)
}

func (h *Handler) DeleteDepartment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	err = h.store.DeleteDepartment(c.UserContext(), id)
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("Le département contient encore des enseignants ou des étudiants")
	}
	if err != nil {
		return err
	}
	h.log.Info("department deleted", zap.Int64("department_id", id))
	return httpx.Message(c, "Département supprimé", fiber.Map{"id": id})
}

type chiefRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
}

// AssignChief makes a teacher of the department its head; the previous head goes
// back to the enseignant role.
func (h *Handler) AssignChief(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req chiefRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.store.AssignChief(ctx, id, req.TeacherID); err != nil {
		return err
	}
	d, err := h.store.DepartmentByID(ctx, id)
	if err != nil {
		return err
	}
	h.log.Info("department chief assigned", zap.Int64("department_id", id), zap.Int64("teacher_id", req.TeacherID))
	return httpx.Message(c, "Chef de département nommé", d)
}

func departmentFilter(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Query("department_id", "0"), 10, 64)
	if err != nil || id < 0 {
		return 0, httpx.BadRequest("Département invalide")
	}
	return id, nil
}

func (h *Handler) ListTeachers(c *fiber.Ctx) error {
	dept, err := departmentFilter(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListTeachers(c.UserContext(), dept, c.Query("search"))
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type teacherRequest struct {
	Matricule    string       `json:"matricule" validate:"required,max=32"`
	FirstName    string       `json:"first_name" validate:"required,max=100"`
	LastName     string       `json:"last_name" validate:"required,max=100"`
	Email        string       `json:"email" validate:"required,email"`
	Grade        models.Grade `json:"grade" validate:"required,oneof=Professeur Maitre_Conferences Maitre_Assistant Assistant"`
	Specialty    string       `json:"specialty" validate:"max=150"`
	DepartmentID int64        `json:"department_id" validate:"required,gt=0"`
}

func (r teacherRequest) teacher() models.Teacher {
	return models.Teacher{
		DepartmentID: r.DepartmentID,
		Matricule:    r.Matricule,
		Grade:        r.Grade,
		Specialty:    r.Specialty,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
	}
}

// created is the answer to account creation: the record and the initial password,
// shown once.
type created[T any] struct {
	Record          T      `json:"record"`
	InitialPassword string `json:"initial_password"`
}

var errDuplicatePerson = httpx.Conflict("Email ou matricule déjà utilisé")

func (h *Handler) CreateTeacher(c *fiber.Ctx) error {
	var req teacherRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.store.DepartmentByID(ctx, req.DepartmentID); err != nil {
		return err
	}
	pw := auth.GeneratePassword()
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	t, err := h.store.CreateTeacher(ctx, req.teacher(), hash)
	if errors.Is(err, db.ErrConflict) {
		return errDuplicatePerson
	}
	if err != nil {
		return err
	}
	h.log.Info("teacher created", zap.Int64("teacher_id", t.ID), zap.Int64("user_id", t.UserID))
	return httpx.Created(c, created[models.Teacher]{Record: t, InitialPassword: pw})
}

func (h *Handler) UpdateTeacher(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req teacherRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t := req.teacher()
	t.ID = id
	ctx := c.UserContext()
	err = h.store.UpdateTeacher(ctx, t)
	if errors.Is(err, db.ErrConflict) {
		return errDuplicatePerson
	}
	if err != nil {
		return err
	}
	t, err = h.store.TeacherByID(ctx, id)
	if err != nil {
		return err
	}
	return httpx.Message(c, "Enseignant mis à jour", t)
}

func (h *Handler) DeleteTeacher(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	err = h.store.DeleteTeacher(c.UserContext(), id)
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("L'enseignant encadre des étudiants ou siège dans un jury")
	}
	if err != nil {
		return err
	}
	h.log.Info("teacher deleted", zap.Int64("teacher_id", id))
	return httpx.Message(c, "Enseignant supprimé", fiber.Map{"id": id})
}

func (h *Handler) ListStudents(c *fiber.Ctx) error {
	dept, err := h.scope(c)
	if err != nil {
		return err
	}
	out, err := h.store.ListStudents(c.UserContext(), dept, c.Query("search"))
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

type studentRequest struct {
	Matricule    string `json:"matricule" validate:"required,max=32"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Level        string `json:"level" validate:"required,max=50"`
	AcademicYear string `json:"academic_year" validate:"required,max=20"`
	DepartmentID int64  `json:"department_id" validate:"required,gt=0"`
}

func (r studentRequest) student() models.StudentProfile {
	return models.StudentProfile{
		DepartmentID: r.DepartmentID,
		Matricule:    r.Matricule,
		Level:        r.Level,
		AcademicYear: r.AcademicYear,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
	}
}

func (h *Handler) CreateStudent(c *fiber.Ctx) error {
	var req studentRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.store.DepartmentByID(ctx, req.DepartmentID); err != nil {
		return err
	}
	pw := auth.GeneratePassword()
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	st, err := h.store.CreateStudent(ctx, req.student(), hash)
	if errors.Is(err, db.ErrConflict) {
		return errDuplicatePerson
	}
	if err != nil {
		return err
	}
	h.log.Info("student created", zap.Int64("student_id", st.ID), zap.Int64("user_id", st.UserID))
	return httpx.Created(c, created[models.StudentProfile]{Record: st, InitialPassword: pw})
}

func (h *Handler) UpdateStudent(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req studentRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	st := req.student()
	st.ID = id
	ctx := c.UserContext()
	err = h.store.UpdateStudent(ctx, st)
	if errors.Is(err, db.ErrConflict) {
		return errDuplicatePerson
	}
	if err != nil {
		return err
	}
	st, err = h.store.StudentByID(ctx, id)
	if err != nil {
		return err
	}
	return httpx.Message(c, "Étudiant mis à jour", st)
}

func (h *Handler) DeleteStudent(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteStudent(c.UserContext(), id); err != nil {
		return err
	}
	h.log.Info("student deleted", zap.Int64("student_id", id))
	return httpx.Message(c, "Étudiant supprimé", fiber.Map{"id": id})
}
