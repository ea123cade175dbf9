package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/academic"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/market"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		internal bool
	}{
		{db.ErrNotFound, 404, false},
		{fmt.Errorf("%w: commande déjà paid", db.ErrConflict), 409, false},
		{errors.Join(db.ErrConflict, errors.New("duplicate key")), 409, false},
		{db.ErrInvalidState, 409, false},
		{db.ErrInsufficientFunds, 400, false},
		{Forbidden(), 403, false},
		{fiber.ErrMethodNotAllowed, 405, false},
		{errors.New("connection reset"), 500, true},
	}
	for _, tc := range cases {
		he, internal := Classify(tc.err)
		assert.Equal(t, tc.status, he.Status, "%v", tc.err)
		assert.Equal(t, tc.internal, internal, "%v", tc.err)
	}

	he, _ := Classify(fmt.Errorf("%w: commande déjà paid", db.ErrConflict))
	assert.Equal(t, "commande déjà paid", he.Msg)
	he, _ = Classify(errors.Join(db.ErrConflict, errors.New("duplicate key")))
	assert.Equal(t, "Opération impossible dans l'état actuel", he.Msg)
	he, _ = Classify(errors.New("pq: password authentication failed"))
	assert.NotContains(t, he.Msg, "pq", "backend details stay server side")
}

func TestClassifyRules(t *testing.T) {
	he, internal := Classify(fmt.Errorf("ligne 2: %w: étudiant en double", academic.ErrNotEligible))
	assert.False(t, internal)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "ligne 2: étudiant en double", he.Msg)

	he, _ = Classify(market.ListingTransition("pending", "pending"))
	assert.Equal(t, 400, he.Status)
	assert.NotContains(t, he.Msg, "market:")
}

type register struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestBindTranslatesFieldErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Post("/register", func(c *fiber.Ctx) error {
		var in register
		if err := Bind(c, &in); err != nil {
			return err
		}
		return Created(c, in.Email)
	})

	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"email":"pas-un-mail","password":"court"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var env struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "Données invalides", env.Error)
	assert.Contains(t, env.Fields, "full_name")
	assert.Contains(t, env.Fields, "email")
	assert.Contains(t, env.Fields, "password")
	assert.Contains(t, env.Fields["full_name"], "obligatoire")

	req = httptest.NewRequest("POST", "/register", strings.NewReader(`{"full_name":"A","email":"a@b.cm","password":"12345678"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest("POST", "/register", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPageFrom(t *testing.T) {
	app := fiber.New()
	var got Page
	app.Get("/", func(c *fiber.Ctx) error {
		got = PageFrom(c)
		return nil
	})

	for q, want := range map[string]Page{
		"":                      {1, DefaultPerPage},
		"?page=3&per_page=10":   {3, 10},
		"?page=-1&per_page=0":   {1, DefaultPerPage},
		"?per_page=100000":      {1, MaxPerPage},
		"?page=abc&per_page=xy": {1, DefaultPerPage},
	} {
		_, err := app.Test(httptest.NewRequest("GET", "/"+q, nil))
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
	assert.Equal(t, 20, Page{Page: 3, PerPage: 10}.Offset())
}
