package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
	"github.com/ksInsandji/pensezy-edition/internal/logging"
)

func TestIssueParse(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour, "memoires")
	tok, exp, err := iss.Issue("42", "enseignant", "prof@univ.cm")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", c.Subject)
	assert.Equal(t, "enseignant", c.Role)
	assert.Equal(t, "prof@univ.cm", c.Email)
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour, "memoires")
	tok, _, err := iss.Issue("42", "admin", "a@b.c")
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour, "memoires").Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = NewIssuer("s3cret", time.Hour, "marketplace").Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "token of the other app")

	expired := NewIssuer("s3cret", time.Hour, "memoires")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("42", "admin", "a@b.c")
	require.NoError(t, err)
	_, err = iss.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	h, err := HashPassword("motdepasse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "motdepasse"))
	assert.False(t, CheckPassword(h, "autre"))
	assert.False(t, CheckPassword("", ""))

	p := GeneratePassword()
	assert.Len(t, p, 12)
	assert.NotEqual(t, p, GeneratePassword())
}

func TestAuthenticate(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour, "marketplace")
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logging.Nop().Base)})
	elevate := func(email, role string) string {
		if email == "boss@pensezy.cm" {
			return "admin"
		}
		return role
	}
	app.Get("/me", Authenticate(iss, elevate), func(c *fiber.Ctx) error {
		role, _ := ctxutil.Role(c.UserContext())
		id, _ := ctxutil.UserID(c.UserContext())
		return c.SendString(id + ":" + role)
	})

	call := func(header string) (int, string) {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	status, _ := call("")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = call("Bearer garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	tok, _, _ := iss.Issue("u-1", "user", "u1@pensezy.cm")
	status, body := call("Bearer " + tok)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u-1:user", body)

	tok, _, _ = iss.Issue("u-2", "user", "boss@pensezy.cm")
	_, body = call("Bearer " + tok)
	assert.Equal(t, "u-2:admin", body)
}
