package memoapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

var errBadCredentials = &httpx.Error{Status: fiber.StatusUnauthorized, Msg: "Email ou mot de passe incorrect"}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.store.UserByEmail(c.UserContext(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		return errBadCredentials
	}
	if err != nil {
		return err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, req.Password) {
		return errBadCredentials
	}
	u.Role = models.Role(h.elevate(u.Email, string(u.Role)))

	token, exp, err := h.tokens.Issue(strconv.FormatInt(u.ID, 10), string(u.Role), u.Email)
	if err != nil {
		return err
	}
	h.log.Info("login", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return httpx.OK(c, session{Token: token, ExpiresAt: exp, User: u})
}

// profile is the /me payload: the account plus its teacher or student record.
type profile struct {
	User       models.User            `json:"user"`
	Teacher    *models.Teacher        `json:"teacher,omitempty"`
	Student    *models.StudentProfile `json:"student,omitempty"`
	Department *models.Department     `json:"department,omitempty"`
}

func (h *Handler) Me(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	u, err := h.store.UserByID(ctx, uid)
	if err != nil {
		return err
	}
	u.Role = models.Role(h.elevate(u.Email, string(u.Role)))
	out := profile{User: u}

	switch u.Role {
	case models.RoleTeacher, models.RoleChief:
		t, err := h.store.TeacherByUserID(ctx, uid)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if err == nil {
			out.Teacher = &t
		}
		if u.Role == models.RoleChief {
			d, err := h.store.DepartmentOfChief(ctx, uid)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				return err
			}
			if err == nil {
				out.Department = &d
			}
		}
	case models.RoleStudent:
		st, err := h.store.StudentByUserID(ctx, uid)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if err == nil {
			out.Student = &st
		}
	}
	return httpx.OK(c, out)
}

type telegramRequest struct {
	ChatID *int64 `json:"chat_id"`
}

// LinkTelegram stores the chat used for jury notifications; null unlinks it.
func (h *Handler) LinkTelegram(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req telegramRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	if err := h.store.SetTelegramChat(c.UserContext(), uid, req.ChatID); err != nil {
		return err
	}
	return httpx.Message(c, "Notifications Telegram mises à jour", fiber.Map{"chat_id": req.ChatID})
}
