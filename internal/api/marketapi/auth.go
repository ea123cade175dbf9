package marketapi

import (
	"errors"
	"strings"
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

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   models.Profile `json:"profile"`
}

var errBadCredentials = &httpx.Error{Status: fiber.StatusUnauthorized, Msg: "Email ou mot de passe incorrect"}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.store.ProfileByEmail(c.UserContext(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		return errBadCredentials
	}
	if err != nil {
		return err
	}
	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		return errBadCredentials
	}
	p.Role = models.ProfileRole(h.elevate(p.Email, string(p.Role)))
	return h.session(c, p, fiber.StatusOK)
}

// Register creates a buyer account; roles are granted later by an admin.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	p, err := h.store.CreateProfile(c.UserContext(), models.Profile{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		Role:         models.ProfileUser,
		PasswordHash: hash,
	})
	if errors.Is(err, db.ErrConflict) {
		return httpx.Conflict("Cet email est déjà utilisé")
	}
	if err != nil {
		return err
	}
	h.log.Info("profile registered", zap.String("profile_id", p.ID.String()))
	return h.session(c, p, fiber.StatusCreated)
}

func (h *Handler) session(c *fiber.Ctx, p models.Profile, status int) error {
	token, exp, err := h.tokens.Issue(p.ID.String(), string(p.Role), p.Email)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(httpx.Envelope{Data: session{
		Token:     token,
		ExpiresAt: exp,
		Profile:   p,
	}})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	id, err := subjectID(c)
	if err != nil {
		return err
	}
	p, err := h.store.ProfileByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	p.Role = models.ProfileRole(h.elevate(p.Email, string(p.Role)))
	return httpx.OK(c, p)
}
