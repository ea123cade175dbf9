package memoapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/export"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const (
	mimeXLSX       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF        = "application/pdf"
	maxImportBytes = 10 << 20
)

func kindParam(c *fiber.Ctx) (export.Kind, error) {
	k, err := export.ParseKind(c.Params("kind"))
	if err != nil {
		return "", httpx.BadRequest("Type inconnu: enseignants (teachers), étudiants (students) ou jurys")
	}
	return k, nil
}

func attach(c *fiber.Ctx, mime, name string, body []byte) error {
	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Status(fiber.StatusOK).Send(body)
}

// Template serves the empty import workbook of a kind.
func (h *Handler) Template(c *fiber.Ctx) error {
	k, err := kindParam(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.Template(k)); err != nil {
		return err
	}
	return attach(c, mimeXLSX, export.Filename("modele_"+k.Title(), "xlsx", h.now()), buf.Bytes())
}

// Export writes the caller's scope as xlsx (default) or pdf. The xlsx columns are the
// template columns so the file can be imported back.
func (h *Handler) Export(c *fiber.Ctx) error {
	k, err := kindParam(c)
	if err != nil {
		return err
	}
	format := strings.ToLower(c.Query("format", "xlsx"))
	if format != "xlsx" && format != "pdf" {
		return httpx.BadRequest("Format inconnu: xlsx ou pdf")
	}
	dept, err := h.scope(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var sheet export.SheetSpec
	switch k {
	case export.Teachers:
		ts, err := h.store.ListTeachers(ctx, dept, "")
		if err != nil {
			return err
		}
		sheet = export.TeacherSheet(ts)
	case export.Students:
		ss, err := h.store.ListStudents(ctx, dept, "")
		if err != nil {
			return err
		}
		sheet = export.StudentSheet(ss)
	case export.Jurys:
		js, err := h.store.ListJurys(ctx, dept)
		if err != nil {
			return err
		}
		sheet = export.JurySheet(js, h.loc)
	}

	now := h.now().In(h.loc)
	var buf bytes.Buffer
	if format == "pdf" {
		if err := export.WritePDF(&buf, k.Title(), sheet, now); err != nil {
			return err
		}
		return attach(c, mimePDF, export.Filename(k.Title(), "pdf", now), buf.Bytes())
	}
	if err := export.WriteXLSX(&buf, []export.SheetSpec{sheet}); err != nil {
		return err
	}
	return attach(c, mimeXLSX, export.Filename(k.Title(), "xlsx", now), buf.Bytes())
}

// Import reads an uploaded workbook and applies each valid line on its own. Lines whose
// e-mail or matricule already exists are skipped with a warning.
func (h *Handler) Import(c *fiber.Ctx) error {
	k, err := kindParam(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest("Fichier xlsx manquant (champ file)")
	}
	if fh.Size > maxImportBytes {
		return httpx.BadRequest("Fichier trop volumineux (10 Mo maximum)")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ctx := c.UserContext()
	res := export.NewImportResult()
	switch k {
	case export.Teachers:
		err = h.importTeachers(ctx, f, res)
	case export.Students:
		err = h.importStudents(ctx, f, res)
	case export.Jurys:
		err = h.importJurys(ctx, f, res)
	}
	if errors.Is(err, export.ErrBadFile) || errors.Is(err, export.ErrBadHeader) {
		return httpx.BadRequest(strings.TrimPrefix(err.Error(), "export: "))
	}
	if err != nil {
		return err
	}
	h.log.Info("import done", zap.String("kind", string(k)),
		zap.Int("success", res.SuccessCount), zap.Int("errors", res.ErrorCount), zap.Int("warnings", res.WarningCount))
	return httpx.OK(c, res)
}

// lineErr turns a store error into the message shown for one import line.
func (h *Handler) lineErr(err error) error {
	he, unexpected := httpx.Classify(err)
	if unexpected {
		h.log.Error("import line failed", zap.Error(err))
	}
	return errors.New(he.Msg)
}

func (h *Handler) departmentByCode(ctx context.Context, code string) (models.Department, error) {
	d, err := h.store.DepartmentByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return d, fmt.Errorf("département %s inconnu", code)
	}
	return d, err
}

// personExists reports an existing account or matricule as an ErrSkip.
func (h *Handler) personExists(ctx context.Context, email, matricule string, byMatricule func(context.Context, string) error) error {
	_, err := h.store.UserByEmail(ctx, email)
	if err == nil {
		return export.Skip(fmt.Sprintf("email %s déjà utilisé", email))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return h.lineErr(err)
	}
	err = byMatricule(ctx, matricule)
	if err == nil {
		return export.Skip(fmt.Sprintf("matricule %s déjà utilisé", matricule))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return h.lineErr(err)
	}
	return nil
}

func (h *Handler) importTeachers(ctx context.Context, r io.Reader, res *export.ImportResult) error {
	rows, err := export.ParseTeachers(r, res)
	if err != nil {
		return err
	}
	byMatricule := func(ctx context.Context, m string) error {
		_, err := h.store.TeacherByMatricule(ctx, m)
		return err
	}
	export.Apply(res, rows, func(row export.TeacherRow) (string, error) {
		if err := h.personExists(ctx, row.Email, row.Matricule, byMatricule); err != nil {
			return "", err
		}
		d, err := h.departmentByCode(ctx, row.Department)
		if err != nil {
			return "", err
		}
		pw := auth.GeneratePassword()
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return "", h.lineErr(err)
		}
		t, err := h.store.CreateTeacher(ctx, models.Teacher{
			DepartmentID: d.ID,
			Matricule:    row.Matricule,
			Grade:        row.Grade,
			Specialty:    row.Specialty,
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			Email:        row.Email,
		}, hash)
		if err != nil {
			return "", h.lineErr(err)
		}
		return fmt.Sprintf("%s créé (mot de passe initial: %s)", t.FullName(), pw), nil
	})
	return nil
}

func (h *Handler) importStudents(ctx context.Context, r io.Reader, res *export.ImportResult) error {
	rows, err := export.ParseStudents(r, res)
	if err != nil {
		return err
	}
	byMatricule := func(ctx context.Context, m string) error {
		_, err := h.store.StudentByMatricule(ctx, m)
		return err
	}
	export.Apply(res, rows, func(row export.StudentRow) (string, error) {
		if err := h.personExists(ctx, row.Email, row.Matricule, byMatricule); err != nil {
			return "", err
		}
		d, err := h.departmentByCode(ctx, row.Department)
		if err != nil {
			return "", err
		}
		pw := auth.GeneratePassword()
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return "", h.lineErr(err)
		}
		st, err := h.store.CreateStudent(ctx, models.StudentProfile{
			DepartmentID: d.ID,
			Matricule:    row.Matricule,
			Level:        row.Level,
			AcademicYear: row.AcademicYear,
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			Email:        row.Email,
		}, hash)
		if err != nil {
			return "", h.lineErr(err)
		}
		return fmt.Sprintf("%s créé (mot de passe initial: %s)", st.FullName(), pw), nil
	})
	return nil
}

// importJurys creates one jury per line, each in its own transaction, then sends the
// convocations of the created ones.
func (h *Handler) importJurys(ctx context.Context, r io.Reader, res *export.ImportResult) error {
	rows, err := export.ParseJurys(r, h.loc, res)
	if err != nil {
		return err
	}
	var created []int64
	export.Apply(res, rows, func(row export.JuryRow) (string, error) {
		st, err := h.store.StudentByMatricule(ctx, row.StudentMatricule)
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("étudiant %s introuvable", row.StudentMatricule)
		}
		if err != nil {
			return "", h.lineErr(err)
		}
		if _, err := h.store.JuryOfStudent(ctx, st.ID); err == nil {
			return "", export.Skip(fmt.Sprintf("jury déjà programmé pour %s", st.Matricule))
		} else if !errors.Is(err, db.ErrNotFound) {
			return "", h.lineErr(err)
		}

		var panel academic.Panel
		for _, m := range []struct {
			email string
			dst   *int64
		}{
			{row.PresidentEmail, &panel.PresidentID},
			{row.RapporteurEmail, &panel.RapporteurID},
			{row.ExaminateurEmail, &panel.ExaminateurID},
		} {
			t, err := h.store.TeacherByEmail(ctx, m.email)
			if errors.Is(err, db.ErrNotFound) {
				return "", fmt.Errorf("enseignant %s introuvable", m.email)
			}
			if err != nil {
				return "", h.lineErr(err)
			}
			*m.dst = t.ID
		}

		ids, err := h.store.CreateJurys(ctx, []academic.Slot{{
			StudentID: st.ID,
			Panel:     panel,
			Start:     row.ScheduledAt,
			Duration:  time.Duration(row.DurationMinutes) * time.Minute,
			Room:      row.Room,
		}})
		if err != nil {
			// single-slot batch: the position prefix adds nothing to the sheet line
			return "", errors.New(strings.TrimPrefix(h.lineErr(err).Error(), "ligne 1: "))
		}
		created = append(created, ids...)
		return fmt.Sprintf("jury de %s programmé le %s", st.FullName(), row.ScheduledAt.In(h.loc).Format("02/01/2006 15:04")), nil
	})
	if len(created) > 0 {
		h.notify.Convocations(ctx, created)
	}
	return nil
}
