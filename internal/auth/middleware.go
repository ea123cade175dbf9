package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
)

// Authenticate requires a valid bearer token and stores the subject in the request
// context. elevate, when set, may replace the role (ADMIN_EMAILS accounts).
func Authenticate(iss *Issuer, elevate func(email, role string) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return httpx.Unauthorized()
		}
		claims, err := iss.Parse(strings.TrimSpace(raw))
		if err != nil {
			return httpx.Unauthorized()
		}
		role := claims.Role
		if elevate != nil {
			role = elevate(claims.Email, role)
		}

		ctx := ctxutil.WithUserID(c.UserContext(), claims.Subject)
		ctx = ctxutil.WithRole(ctx, role)
		ctx = ctxutil.WithEmail(ctx, claims.Email)
		c.SetUserContext(ctx)
		return c.Next()
	}
}
