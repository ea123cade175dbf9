package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureCtx reports err tagged with the operation and user found in ctx.
func CaptureCtx(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if op, ok := ctxutil.Op(ctx); ok {
			scope.SetTag("op", op)
		}
		if uid, ok := ctxutil.UserID(ctx); ok {
			scope.SetUser(sentry.User{ID: uid})
		}
		if role, ok := ctxutil.Role(ctx); ok {
			scope.SetTag("role", role)
		}
		sentry.CaptureException(err)
	})
}
