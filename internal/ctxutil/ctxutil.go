package ctxutil

import (
	"context"
	"time"
)

// private keys so nothing outside this package collides with them
type key int

const (
	keyUserID key = iota
	keyRole
	keyEmail
	keyOpName
)

// WithUserID / UserID carry the authenticated subject id (uuid or numeric, as text).
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(keyUserID)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// WithRole / Role carry the role claimed by the token.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, keyRole, role)
}

func Role(ctx context.Context) (string, bool) {
	v := ctx.Value(keyRole)
	if v == nil {
		return "", false
	}
	r, ok := v.(string)
	return r, ok
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, keyEmail, email)
}

func Email(ctx context.Context) (string, bool) {
	v := ctx.Value(keyEmail)
	if v == nil {
		return "", false
	}
	e, ok := v.(string)
	return e, ok
}

// WithOp / Op name the operation for logs and Sentry tags.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var (
	DefaultDBTimeout      = 5 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout keeps the parent's deadline when it is shorter than DefaultDBTimeout.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
