// Package authz is the single authorization checkpoint of both APIs: resources register
// a policy on a Gate and routes declare the (resource, action) they need.
package authz

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
	"github.com/ksInsandji/pensezy-edition/internal/httpx"
)

var (
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	ErrForbidden       = errors.New("authz: forbidden")
	ErrNoPolicy        = errors.New("authz: no policy defined for resource")
)

type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
	Manage Action = "manage"
)

// Subject is the authenticated caller as stored by auth.Authenticate.
type Subject struct {
	ID    string
	Role  string
	Email string
}

func SubjectFrom(ctx context.Context) Subject {
	var s Subject
	s.ID, _ = ctxutil.UserID(ctx)
	s.Role, _ = ctxutil.Role(ctx)
	s.Email, _ = ctxutil.Email(ctx)
	return s
}

type Policy interface {
	Can(ctx context.Context, s Subject, action Action) bool
}

// Roles is a policy granting each action to a fixed set of roles.
type Roles map[Action][]string

func (r Roles) Can(_ context.Context, s Subject, action Action) bool {
	allowed := r[action]
	if len(allowed) == 0 {
		allowed = r[Manage]
	}
	for _, role := range allowed {
		if role == s.Role {
			return true
		}
	}
	return false
}

type Gate struct {
	policies map[string]Policy
}

func NewGate() *Gate {
	return &Gate{policies: map[string]Policy{}}
}

// Register sets the policy of a resource, replacing any previous one.
func (g *Gate) Register(resource string, p Policy) *Gate {
	g.policies[resource] = p
	return g
}

func (g *Gate) Authorize(ctx context.Context, s Subject, action Action, resource string) error {
	if s.ID == "" {
		return ErrUnauthenticated
	}
	p, ok := g.policies[resource]
	if !ok {
		return ErrNoPolicy
	}
	if !p.Can(ctx, s, action) {
		return ErrForbidden
	}
	return nil
}

// Require is the route guard. A missing policy is a server bug and answers 500.
func (g *Gate) Require(resource string, action Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := g.Authorize(c.UserContext(), SubjectFrom(c.UserContext()), action, resource)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, ErrUnauthenticated):
			return httpx.Unauthorized()
		case errors.Is(err, ErrForbidden):
			return httpx.Forbidden()
		}
		return err
	}
}
