package authz

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/logging"
)

func gate() *Gate {
	return NewGate().
		Register("orders", Roles{Manage: {"admin"}}).
		Register("themes", Roles{Read: {"etudiant", "enseignant"}, Update: {"enseignant"}})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	g := gate()
	admin := Subject{ID: "1", Role: "admin"}
	student := Subject{ID: "2", Role: "etudiant"}

	assert.NoError(t, g.Authorize(ctx, admin, Update, "orders"))
	assert.ErrorIs(t, g.Authorize(ctx, student, Read, "orders"), ErrForbidden)
	assert.NoError(t, g.Authorize(ctx, student, Read, "themes"))
	assert.ErrorIs(t, g.Authorize(ctx, student, Update, "themes"), ErrForbidden)
	assert.ErrorIs(t, g.Authorize(ctx, admin, Delete, "themes"), ErrForbidden, "no manage fallback defined")
	assert.ErrorIs(t, g.Authorize(ctx, Subject{}, Read, "themes"), ErrUnauthenticated)
	assert.ErrorIs(t, g.Authorize(ctx, admin, Read, "unknown"), ErrNoPolicy)
}

func TestRequire(t *testing.T) {
	g := gate()
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logging.Nop().Base)})
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Role"); role != "" {
			ctx := ctxutil.WithUserID(c.UserContext(), "7")
			c.SetUserContext(ctxutil.WithRole(ctx, role))
		}
		return c.Next()
	})
	app.Post("/orders/:id/confirm", g.Require("orders", Update), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/broken", g.Require("nothing", Read), func(c *fiber.Ctx) error { return nil })

	cases := []struct {
		path, role string
		want       int
	}{
		{"/orders/1/confirm", "", fiber.StatusUnauthorized},
		{"/orders/1/confirm", "seller", fiber.StatusForbidden},
		{"/orders/1/confirm", "admin", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("POST", tc.path, nil)
		req.Header.Set("X-Role", tc.role)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "role %q", tc.role)
	}

	req := httptest.NewRequest("GET", "/broken", nil)
	req.Header.Set("X-Role", "admin")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
